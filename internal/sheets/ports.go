package sheets

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
)

// Section names one independently persisted part of a day.
type Section string

const (
	SectionStock         Section = "stock"
	SectionAccommodation Section = "accommodation"
	SectionExpenses      Section = "expenses"
	SectionMoneyPaid     Section = "money_paid"
	SectionMoneyInvested Section = "money_invested"
)

// Sections returns every per-date section in save order.
func Sections() []Section {
	return []Section{SectionStock, SectionAccommodation, SectionExpenses, SectionMoneyPaid, SectionMoneyInvested}
}

// IsAmount reports whether the section holds a single amount.
func (s Section) IsAmount() bool {
	return s == SectionMoneyPaid || s == SectionMoneyInvested
}

// Ports for outbound adapters. Loads of an absent resource return an error
// wrapping core.ErrMissingResource; saves overwrite unconditionally.
type (
	PriceBookStore interface {
		LoadPrices(ctx context.Context) (core.PriceBook, error)
		SavePrices(ctx context.Context, prices core.PriceBook) error
	}

	DayReader interface {
		LoadStock(ctx context.Context, d core.Date) ([]core.StockLine, error)
		LoadAccommodation(ctx context.Context, d core.Date) ([]core.AccommodationRecord, error)
		LoadExpenses(ctx context.Context, d core.Date) ([]core.ExpenseLine, error)
		// LoadAmount reads SectionMoneyPaid or SectionMoneyInvested.
		LoadAmount(ctx context.Context, d core.Date, s Section) (decimal.Decimal, error)
	}

	DayWriter interface {
		SaveStock(ctx context.Context, d core.Date, lines []core.StockLine) error
		SaveAccommodation(ctx context.Context, d core.Date, records []core.AccommodationRecord) error
		SaveExpenses(ctx context.Context, d core.Date, lines []core.ExpenseLine) error
		SaveAmount(ctx context.Context, d core.Date, s Section, v decimal.Decimal) error
	}

	// DateLister returns the distinct dates with at least one saved
	// section, most recent first.
	DateLister interface {
		ListDates(ctx context.Context) ([]core.Date, error)
	}

	Store interface {
		PriceBookStore
		DayReader
		DayWriter
		DateLister
	}
)

// OrDefault replaces a missing-resource error with def. Any other error is
// returned unchanged.
func OrDefault[T any](v T, err error, def T) (T, error) {
	if errors.Is(err, core.ErrMissingResource) {
		return def, nil
	}
	return v, err
}
