// Package files persists the ledger as plain files under one directory:
//
//	<dir>/item_prices.csv
//	<dir>/<YYYY-MM-DD>/stock.csv
//	<dir>/<YYYY-MM-DD>/accommodation.csv
//	<dir>/<YYYY-MM-DD>/expenses.csv
//	<dir>/<YYYY-MM-DD>/money_paid.txt
//	<dir>/<YYYY-MM-DD>/money_invested.txt
//
// Every write goes to a temporary file renamed over the target, so a reader
// never sees a half-written section.
package files

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
	"pillars/internal/sheets"
)

const pricesFile = "item_prices.csv"

type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it when needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %v", core.ErrPersistence, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func fileName(sec sheets.Section) string {
	if sec.IsAmount() {
		return string(sec) + ".txt"
	}
	return string(sec) + ".csv"
}

func (s *Store) path(d core.Date, sec sheets.Section) string {
	return filepath.Join(s.dir, d.Key(), fileName(sec))
}

func (s *Store) readTable(path, what string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingResource, what)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, what, err)
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", core.ErrDataInconsistency, what, err)
	}
	return rows, nil
}

func (s *Store) writeTable(path string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("%w: encode %s: %v", core.ErrPersistence, path, err)
	}
	return writeAtomic(path, buf.Bytes())
}

// writeAtomic replaces path with data through a temp file in the same dir.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", core.ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", core.ErrPersistence, path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", core.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", core.ErrPersistence, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", core.ErrPersistence, path, err)
	}
	return nil
}

func (s *Store) LoadPrices(_ context.Context) (core.PriceBook, error) {
	rows, err := s.readTable(filepath.Join(s.dir, pricesFile), "price book")
	if err != nil {
		return nil, err
	}
	return sheets.DecodePrices(rows)
}

func (s *Store) SavePrices(_ context.Context, prices core.PriceBook) error {
	return s.writeTable(filepath.Join(s.dir, pricesFile), sheets.EncodePrices(prices))
}

func (s *Store) LoadStock(_ context.Context, d core.Date) ([]core.StockLine, error) {
	rows, err := s.readTable(s.path(d, sheets.SectionStock), "stock for "+d.Key())
	if err != nil {
		return nil, err
	}
	return sheets.DecodeStock(rows)
}

func (s *Store) LoadAccommodation(_ context.Context, d core.Date) ([]core.AccommodationRecord, error) {
	rows, err := s.readTable(s.path(d, sheets.SectionAccommodation), "accommodation for "+d.Key())
	if err != nil {
		return nil, err
	}
	return sheets.DecodeAccommodation(rows)
}

func (s *Store) LoadExpenses(_ context.Context, d core.Date) ([]core.ExpenseLine, error) {
	rows, err := s.readTable(s.path(d, sheets.SectionExpenses), "expenses for "+d.Key())
	if err != nil {
		return nil, err
	}
	return sheets.DecodeExpenses(rows)
}

func (s *Store) LoadAmount(_ context.Context, d core.Date, sec sheets.Section) (decimal.Decimal, error) {
	if !sec.IsAmount() {
		return decimal.Zero, fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	b, err := os.ReadFile(s.path(d, sec))
	if errors.Is(err, fs.ErrNotExist) {
		return decimal.Zero, fmt.Errorf("%w: %s for %s", core.ErrMissingResource, sec, d)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: read %s for %s: %v", core.ErrPersistence, sec, d, err)
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s for %s: %q", core.ErrDataInconsistency, sec, d, raw)
	}
	return v, nil
}

func (s *Store) SaveStock(_ context.Context, d core.Date, lines []core.StockLine) error {
	return s.writeTable(s.path(d, sheets.SectionStock), sheets.EncodeStock(lines))
}

func (s *Store) SaveAccommodation(_ context.Context, d core.Date, records []core.AccommodationRecord) error {
	return s.writeTable(s.path(d, sheets.SectionAccommodation), sheets.EncodeAccommodation(records))
}

func (s *Store) SaveExpenses(_ context.Context, d core.Date, lines []core.ExpenseLine) error {
	return s.writeTable(s.path(d, sheets.SectionExpenses), sheets.EncodeExpenses(lines))
}

func (s *Store) SaveAmount(_ context.Context, d core.Date, sec sheets.Section, v decimal.Decimal) error {
	if !sec.IsAmount() {
		return fmt.Errorf("%w: %s is not an amount section", core.ErrInvalidInput, sec)
	}
	return writeAtomic(s.path(d, sec), []byte(v.String()+"\n"))
}

// ListDates scans the data directory for date folders holding at least one
// section file.
func (s *Store) ListDates(_ context.Context) ([]core.Date, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", core.ErrPersistence, s.dir, err)
	}
	var out []core.Date
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := core.ParseDate(e.Name())
		if err != nil {
			continue
		}
		if s.hasSection(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j].Time) })
	return out, nil
}

func (s *Store) hasSection(d core.Date) bool {
	for _, sec := range sheets.Sections() {
		if _, err := os.Stat(s.path(d, sec)); err == nil {
			return true
		}
	}
	return false
}

var _ sheets.Store = (*Store)(nil)
