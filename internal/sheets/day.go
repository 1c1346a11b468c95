package sheets

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
)

// Day is the persisted snapshot of one date, every section included.
type Day struct {
	Date          core.Date
	Stock         []core.StockLine
	Accommodation []core.AccommodationRecord
	Expenses      []core.ExpenseLine
	MoneyPaid     decimal.Decimal
	MoneyInvested decimal.Decimal
}

// DayFromSession snapshots the persistable inputs of a session.
func DayFromSession(s *core.Session) Day {
	return Day{
		Date:          s.Date,
		Stock:         append([]core.StockLine(nil), s.Stock.Lines...),
		Accommodation: append([]core.AccommodationRecord(nil), s.Accommodation...),
		Expenses:      append([]core.ExpenseLine(nil), s.Expenses...),
		MoneyPaid:     s.MoneyPaid,
		MoneyInvested: s.MoneyInvested,
	}
}

// LoadDay reads every section of d as saved. Missing sections come back
// empty; found reports whether any section existed.
func LoadDay(ctx context.Context, r DayReader, d core.Date) (day Day, found bool, err error) {
	day.Date = d
	present := 0
	mark := func(err error) error {
		if err == nil {
			present++
		}
		return err
	}

	stock, err := r.LoadStock(ctx, d)
	if day.Stock, err = OrDefault(stock, mark(err), nil); err != nil {
		return Day{}, false, fmt.Errorf("load %s stock: %w", d, err)
	}
	records, err := r.LoadAccommodation(ctx, d)
	if day.Accommodation, err = OrDefault(records, mark(err), nil); err != nil {
		return Day{}, false, fmt.Errorf("load %s accommodation: %w", d, err)
	}
	expenses, err := r.LoadExpenses(ctx, d)
	if day.Expenses, err = OrDefault(expenses, mark(err), nil); err != nil {
		return Day{}, false, fmt.Errorf("load %s expenses: %w", d, err)
	}
	paid, err := r.LoadAmount(ctx, d, SectionMoneyPaid)
	if day.MoneyPaid, err = OrDefault(paid, mark(err), decimal.Zero); err != nil {
		return Day{}, false, fmt.Errorf("load %s money paid: %w", d, err)
	}
	invested, err := r.LoadAmount(ctx, d, SectionMoneyInvested)
	if day.MoneyInvested, err = OrDefault(invested, mark(err), decimal.Zero); err != nil {
		return Day{}, false, fmt.Errorf("load %s money invested: %w", d, err)
	}
	return day, present > 0, nil
}

// SaveDay writes every section of day. It stops at the first failure, so
// a failed save may leave earlier sections already overwritten.
func SaveDay(ctx context.Context, w DayWriter, day Day) error {
	if err := w.SaveStock(ctx, day.Date, day.Stock); err != nil {
		return fmt.Errorf("save %s stock: %w", day.Date, err)
	}
	if err := w.SaveAccommodation(ctx, day.Date, day.Accommodation); err != nil {
		return fmt.Errorf("save %s accommodation: %w", day.Date, err)
	}
	if err := w.SaveExpenses(ctx, day.Date, day.Expenses); err != nil {
		return fmt.Errorf("save %s expenses: %w", day.Date, err)
	}
	if err := w.SaveAmount(ctx, day.Date, SectionMoneyPaid, day.MoneyPaid); err != nil {
		return fmt.Errorf("save %s money paid: %w", day.Date, err)
	}
	if err := w.SaveAmount(ctx, day.Date, SectionMoneyInvested, day.MoneyInvested); err != nil {
		return fmt.Errorf("save %s money invested: %w", day.Date, err)
	}
	return nil
}
