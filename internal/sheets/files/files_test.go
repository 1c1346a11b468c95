package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"pillars/internal/core"
	"pillars/internal/sheets"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestMissingExpensesIsNotAnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	d, _ := core.ParseDate("2024-01-01")

	lines, err := s.LoadExpenses(ctx, d)
	if !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}
	lines, err = sheets.OrDefault(lines, err, []core.ExpenseLine{})
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected empty expense set, got %v (err=%v)", lines, err)
	}
	if _, err := s.LoadAmount(ctx, d, sheets.SectionMoneyPaid); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	d := core.NewDate(2024, 5, 17)
	day := sheets.Day{
		Date: d,
		Stock: []core.StockLine{
			{Item: "TUSKER", Opening: 10, Purchases: 5, Closing: 8, Price: decimal.RequireFromString("250")},
			{Item: "V&A 750ml", Opening: 2, Price: decimal.RequireFromString("1200.50")},
		},
		Accommodation: []core.AccommodationRecord{{Room: "Room, 4", Ground: 1, MoneyLent: decimal.RequireFromString("800"), Method: core.Other}},
		Expenses:      []core.ExpenseLine{{Description: `Fuel "diesel"`, Amount: decimal.RequireFromString("500")}},
		MoneyPaid:     decimal.RequireFromString("10000"),
		MoneyInvested: decimal.RequireFromString("0.5"),
	}
	if err := sheets.SaveDay(ctx, s, day); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	for _, name := range []string{"stock.csv", "accommodation.csv", "expenses.csv", "money_paid.txt", "money_invested.txt"} {
		if _, err := os.Stat(filepath.Join(s.Dir(), "2024-05-17", name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	got, found, err := sheets.LoadDay(ctx, s, d)
	if err != nil || !found {
		t.Fatalf("LoadDay: found=%v err=%v", found, err)
	}
	if len(got.Stock) != 2 || got.Stock[0].Sales() != 7 || !got.Stock[1].Price.Equal(decimal.RequireFromString("1200.5")) {
		t.Fatalf("unexpected stock: %+v", got.Stock)
	}
	if got.Accommodation[0].Room != "Room, 4" || got.Expenses[0].Description != `Fuel "diesel"` {
		t.Fatalf("quoting lost: %+v %+v", got.Accommodation, got.Expenses)
	}
	if !got.MoneyPaid.Equal(decimal.NewFromInt(10000)) || !got.MoneyInvested.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("unexpected amounts: %s %s", got.MoneyPaid, got.MoneyInvested)
	}
}

func TestPricesRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.LoadPrices(ctx); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}
	book := core.PriceBook{"TUSKER": decimal.NewFromInt(250), "BLACK AND WHITE": decimal.RequireFromString("99.99")}
	if err := s.SavePrices(ctx, book); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadPrices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(book) {
		t.Fatalf("got %v, want %v", got, book)
	}
}

func TestListDates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, key := range []string{"2024-01-02", "2023-12-31", "2024-02-01"} {
		d, _ := core.ParseDate(key)
		if err := s.SaveExpenses(ctx, d, nil); err != nil {
			t.Fatal(err)
		}
	}
	// Noise that must be ignored.
	_ = os.MkdirAll(filepath.Join(s.Dir(), "2024-03-01"), 0o755)
	_ = os.MkdirAll(filepath.Join(s.Dir(), "exports"), 0o755)
	_ = os.WriteFile(filepath.Join(s.Dir(), "2024-04-01"), []byte("x"), 0o644)

	dates, err := s.ListDates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, d := range dates {
		keys = append(keys, d.Key())
	}
	if strings.Join(keys, ",") != "2024-02-01,2024-01-02,2023-12-31" {
		t.Fatalf("ListDates = %v", keys)
	}
}

func TestCorruptAmount(t *testing.T) {
	s := newStore(t)
	d := core.NewDate(2024, 1, 1)
	if err := writeAtomic(s.path(d, sheets.SectionMoneyPaid), []byte("lots")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadAmount(context.Background(), d, sheets.SectionMoneyPaid); !errors.Is(err, core.ErrDataInconsistency) {
		t.Fatalf("expected ErrDataInconsistency, got %v", err)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	d := core.NewDate(2024, 1, 1)
	for i := 0; i < 3; i++ {
		if err := s.SaveAmount(context.Background(), d, sheets.SectionMoneyInvested, decimal.NewFromInt(int64(i))); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(s.Dir(), d.Key()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single file, got %d", len(entries))
	}
}
