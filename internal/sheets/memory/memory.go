// Package memory keeps ledger data in process memory. It backs tests and
// demo runs; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
	"pillars/internal/sheets"
)

type day struct {
	stock         []core.StockLine
	accommodation []core.AccommodationRecord
	expenses      []core.ExpenseLine
	amounts       map[sheets.Section]decimal.Decimal
	present       map[sheets.Section]bool
}

type Store struct {
	mu     sync.Mutex
	prices core.PriceBook
	days   map[string]*day
}

func New() *Store {
	return &Store{days: make(map[string]*day)}
}

// NewWithPrices returns a store seeded with a price book.
func NewWithPrices(prices core.PriceBook) *Store {
	s := New()
	s.prices = prices.Clone()
	return s
}

func missing(what string, d core.Date) error {
	return fmt.Errorf("%w: %s for %s", core.ErrMissingResource, what, d)
}

// section returns the day entry when section s was saved. Callers hold mu.
func (s *Store) section(d core.Date, sec sheets.Section) (*day, bool) {
	e, ok := s.days[d.Key()]
	if !ok || !e.present[sec] {
		return nil, false
	}
	return e, true
}

// entry returns the day entry, creating it. Callers hold mu.
func (s *Store) entry(d core.Date, sec sheets.Section) *day {
	e, ok := s.days[d.Key()]
	if !ok {
		e = &day{amounts: map[sheets.Section]decimal.Decimal{}, present: map[sheets.Section]bool{}}
		s.days[d.Key()] = e
	}
	e.present[sec] = true
	return e
}

func (s *Store) LoadPrices(_ context.Context) (core.PriceBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prices == nil {
		return nil, fmt.Errorf("%w: price book", core.ErrMissingResource)
	}
	return s.prices.Clone(), nil
}

func (s *Store) SavePrices(_ context.Context, prices core.PriceBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = prices.Clone()
	return nil
}

func (s *Store) LoadStock(_ context.Context, d core.Date) ([]core.StockLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.section(d, sheets.SectionStock)
	if !ok {
		return nil, missing("stock", d)
	}
	return append([]core.StockLine(nil), e.stock...), nil
}

func (s *Store) LoadAccommodation(_ context.Context, d core.Date) ([]core.AccommodationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.section(d, sheets.SectionAccommodation)
	if !ok {
		return nil, missing("accommodation", d)
	}
	return append([]core.AccommodationRecord(nil), e.accommodation...), nil
}

func (s *Store) LoadExpenses(_ context.Context, d core.Date) ([]core.ExpenseLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.section(d, sheets.SectionExpenses)
	if !ok {
		return nil, missing("expenses", d)
	}
	return append([]core.ExpenseLine(nil), e.expenses...), nil
}

func (s *Store) LoadAmount(_ context.Context, d core.Date, sec sheets.Section) (decimal.Decimal, error) {
	if !sec.IsAmount() {
		return decimal.Zero, fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.section(d, sec)
	if !ok {
		return decimal.Zero, missing(string(sec), d)
	}
	return e.amounts[sec], nil
}

func (s *Store) SaveStock(_ context.Context, d core.Date, lines []core.StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(d, sheets.SectionStock).stock = append([]core.StockLine(nil), lines...)
	return nil
}

func (s *Store) SaveAccommodation(_ context.Context, d core.Date, records []core.AccommodationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(d, sheets.SectionAccommodation).accommodation = append([]core.AccommodationRecord(nil), records...)
	return nil
}

func (s *Store) SaveExpenses(_ context.Context, d core.Date, lines []core.ExpenseLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(d, sheets.SectionExpenses).expenses = append([]core.ExpenseLine(nil), lines...)
	return nil
}

func (s *Store) SaveAmount(_ context.Context, d core.Date, sec sheets.Section, v decimal.Decimal) error {
	if !sec.IsAmount() {
		return fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(d, sec).amounts[sec] = v
	return nil
}

func (s *Store) ListDates(_ context.Context) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.days))
	for k := range s.days {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	out := make([]core.Date, 0, len(keys))
	for _, k := range keys {
		d, err := core.ParseDate(k)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

var _ sheets.Store = (*Store)(nil)
