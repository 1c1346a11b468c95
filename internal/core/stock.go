package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockSheet holds one line per catalog entry, in catalog order.
type StockSheet struct {
	Lines []StockLine
}

// StockEntry is the raw input for one catalog line. A nil Price keeps the
// price book value.
type StockEntry struct {
	Opening   int
	Purchases int
	Closing   int
	Price     *decimal.Decimal
}

// Reconciliation reports how a saved sheet was matched to the catalog.
type Reconciliation struct {
	Dropped   []string // saved items absent from the catalog
	Defaulted []string // catalog items absent from the saved sheet
}

// Consistent reports whether the saved sheet matched the catalog exactly.
func (r Reconciliation) Consistent() bool {
	return len(r.Dropped) == 0 && len(r.Defaulted) == 0
}

// Err returns nil for a consistent reconciliation, otherwise an error
// wrapping ErrDataInconsistency that describes the differences.
func (r Reconciliation) Err() error {
	if r.Consistent() {
		return nil
	}
	return fmt.Errorf("%w: dropped %d unknown item(s) %v, defaulted %d missing item(s) %v",
		ErrDataInconsistency, len(r.Dropped), r.Dropped, len(r.Defaulted), r.Defaulted)
}

// NewStockSheet returns a zeroed sheet priced from the book.
func NewStockSheet(c Catalog, prices PriceBook) StockSheet {
	lines := make([]StockLine, len(c))
	for i, item := range c {
		lines[i] = StockLine{Item: item, Price: prices.Price(item)}
	}
	return StockSheet{Lines: lines}
}

// ReconcileStock rebuilds a sheet for the current catalog from saved lines.
// The k-th saved line of an item fills the k-th catalog line of that item;
// extra or unknown saved lines are dropped and catalog lines without a saved
// counterpart are zeroed with the book price.
func ReconcileStock(c Catalog, prices PriceBook, saved []StockLine) (StockSheet, Reconciliation) {
	byItem := make(map[string][]StockLine)
	for _, l := range saved {
		byItem[l.Item] = append(byItem[l.Item], l)
	}

	var rec Reconciliation
	sheet := NewStockSheet(c, prices)
	for i, item := range c {
		queue := byItem[item]
		if len(queue) == 0 {
			rec.Defaulted = append(rec.Defaulted, item)
			continue
		}
		sheet.Lines[i] = queue[0]
		byItem[item] = queue[1:]
	}
	// Walk saved lines again to keep the dropped list in saved order.
	for _, l := range saved {
		if rest := byItem[l.Item]; len(rest) > 0 {
			rec.Dropped = append(rec.Dropped, l.Item)
			byItem[l.Item] = rest[1:]
		}
	}
	return sheet, rec
}

// SetCounts updates the counts of line i.
func (s *StockSheet) SetCounts(i, opening, purchases, closing int) error {
	if i < 0 || i >= len(s.Lines) {
		return fmt.Errorf("%w: stock line %d out of range", ErrInvalidInput, i)
	}
	l := StockLine{Item: s.Lines[i].Item, Opening: opening, Purchases: purchases, Closing: closing, Price: s.Lines[i].Price}
	if err := l.Validate(); err != nil {
		return err
	}
	s.Lines[i] = l
	return nil
}

// TotalSalesAmount sums Amount over every line without intermediate rounding.
func (s StockSheet) TotalSalesAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

// TotalSales sums Sales over every line.
func (s StockSheet) TotalSales() int {
	total := 0
	for _, l := range s.Lines {
		total += l.Sales()
	}
	return total
}

// Clone returns a deep copy of the sheet.
func (s StockSheet) Clone() StockSheet {
	return StockSheet{Lines: append([]StockLine(nil), s.Lines...)}
}

// Validate rejects negative counts and prices.
func (l StockLine) Validate() error {
	switch {
	case l.Opening < 0:
		return &InputError{Field: l.Item + " opening stock", Value: fmt.Sprint(l.Opening), Reason: "must not be negative"}
	case l.Purchases < 0:
		return &InputError{Field: l.Item + " purchases", Value: fmt.Sprint(l.Purchases), Reason: "must not be negative"}
	case l.Closing < 0:
		return &InputError{Field: l.Item + " closing stock", Value: fmt.Sprint(l.Closing), Reason: "must not be negative"}
	case l.Price.IsNegative():
		return &InputError{Field: l.Item + " price", Value: l.Price.String(), Reason: "must not be negative"}
	}
	return nil
}
