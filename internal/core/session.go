package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Session is the working state of one day while the user edits it. It is
// passed explicitly to every computation; nothing here is global.
type Session struct {
	Date          Date
	Catalog       Catalog
	Prices        PriceBook
	Stock         StockSheet
	Accommodation Rows[AccommodationRecord]
	Expenses      Rows[ExpenseLine]
	MoneyPaid     decimal.Decimal
	MoneyInvested decimal.Decimal
}

// DayInput carries every input field of the day form at once.
type DayInput struct {
	Stock         []StockEntry
	Accommodation []AccommodationRecord
	Expenses      []ExpenseLine
	MoneyPaid     decimal.Decimal
	MoneyInvested decimal.Decimal
}

// NewSession starts a zeroed day: empty counts priced from the book, the
// default accommodation roster and no expenses.
func NewSession(d Date, c Catalog, prices PriceBook) *Session {
	if prices == nil {
		prices = NewPriceBook(c)
	}
	return &Session{
		Date:          d,
		Catalog:       c,
		Prices:        prices,
		Stock:         NewStockSheet(c, prices),
		Accommodation: NewRoster(DefaultRoster),
		Expenses:      Rows[ExpenseLine]{},
		MoneyPaid:     decimal.Zero,
		MoneyInvested: decimal.Zero,
	}
}

// Clone returns a deep copy, price book included.
func (s *Session) Clone() *Session {
	return &Session{
		Date:          s.Date,
		Catalog:       s.Catalog,
		Prices:        s.Prices.Clone(),
		Stock:         s.Stock.Clone(),
		Accommodation: s.Accommodation.Clone(),
		Expenses:      s.Expenses.Clone(),
		MoneyPaid:     s.MoneyPaid,
		MoneyInvested: s.MoneyInvested,
	}
}

// SetCounts updates the counts of stock line i.
func (s *Session) SetCounts(i, opening, purchases, closing int) error {
	return s.Stock.SetCounts(i, opening, purchases, closing)
}

// SetPrice changes the price of stock line i and writes it through to the
// price book. It reports whether the book changed.
func (s *Session) SetPrice(i int, price decimal.Decimal) (bool, error) {
	if i < 0 || i >= len(s.Stock.Lines) {
		return false, fmt.Errorf("%w: stock line %d out of range", ErrInvalidInput, i)
	}
	item := s.Stock.Lines[i].Item
	old, known := s.Prices[item]
	if err := s.Prices.Set(item, price); err != nil {
		return false, err
	}
	s.Stock.Lines[i].Price = price
	return !known || !old.Equal(price), nil
}

// SetMoney sets the manual money paid to the boss and money invested.
func (s *Session) SetMoney(paid, invested decimal.Decimal) error {
	if paid.IsNegative() {
		return &InputError{Field: "money paid to boss", Value: paid.String(), Reason: "must not be negative"}
	}
	if invested.IsNegative() {
		return &InputError{Field: "money invested", Value: invested.String(), Reason: "must not be negative"}
	}
	s.MoneyPaid, s.MoneyInvested = paid, invested
	return nil
}

func (s *Session) AddAccommodation(r AccommodationRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.Accommodation.Add(r)
	return nil
}

func (s *Session) UpdateAccommodation(i int, r AccommodationRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.Accommodation.Update(i, r)
}

func (s *Session) RemoveAccommodation(i int) error {
	return s.Accommodation.Remove(i)
}

func (s *Session) AddExpense(e ExpenseLine) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.Expenses.Add(e)
	return nil
}

func (s *Session) UpdateExpense(i int, e ExpenseLine) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.Expenses.Update(i, e)
}

func (s *Session) RemoveExpense(i int) error {
	return s.Expenses.Remove(i)
}

// Apply replaces every input of the session with in. Either all fields are
// applied or, on error, the session is left untouched. The returned slice
// names the items whose price changed.
func (s *Session) Apply(in DayInput) ([]string, error) {
	if len(in.Stock) != len(s.Stock.Lines) {
		return nil, fmt.Errorf("%w: %d stock entries for %d lines", ErrInvalidInput, len(in.Stock), len(s.Stock.Lines))
	}
	next := s.Clone()
	var changed []string
	for i, e := range in.Stock {
		if err := next.SetCounts(i, e.Opening, e.Purchases, e.Closing); err != nil {
			return nil, err
		}
		if e.Price == nil {
			continue
		}
		ok, err := next.SetPrice(i, *e.Price)
		if err != nil {
			return nil, err
		}
		if ok {
			changed = append(changed, next.Stock.Lines[i].Item)
		}
	}
	if err := replaceRows(len(next.Accommodation), in.Accommodation,
		next.UpdateAccommodation, next.AddAccommodation, next.RemoveAccommodation); err != nil {
		return nil, err
	}
	if err := replaceRows(len(next.Expenses), in.Expenses,
		next.UpdateExpense, next.AddExpense, next.RemoveExpense); err != nil {
		return nil, err
	}
	if next.Accommodation == nil {
		next.Accommodation = Rows[AccommodationRecord]{}
	}
	if next.Expenses == nil {
		next.Expenses = Rows[ExpenseLine]{}
	}
	if err := next.SetMoney(in.MoneyPaid, in.MoneyInvested); err != nil {
		return nil, err
	}
	*s = *next
	return changed, nil
}

// replaceRows makes the first have rows match want: rows present in both
// are updated in place, extra wanted rows are appended and the surplus is
// removed from the tail.
func replaceRows[T any](have int, want []T, update func(int, T) error, add func(T) error, remove func(int) error) error {
	for i, v := range want {
		var err error
		if i < have {
			err = update(i, v)
		} else {
			err = add(v)
		}
		if err != nil {
			return err
		}
	}
	for i := have - 1; i >= len(want); i-- {
		if err := remove(i); err != nil {
			return err
		}
	}
	return nil
}
