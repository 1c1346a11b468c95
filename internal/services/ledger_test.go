package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"pillars/internal/amqp"
	"pillars/internal/core"
	"pillars/internal/sheets"
	"pillars/internal/sheets/memory"
)

var testCatalog = core.Catalog{"TUSKER", "BALOZI", "TUSKER"}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DaySavedMessage
	err  error
}

func (p *fakePublisher) PublishDaySaved(_ context.Context, msg *amqp.DaySavedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

// failingStore fails the chosen operations and delegates the rest.
type failingStore struct {
	*memory.Store
	failSaveExpenses bool
	failSavePrices   bool
	failLoadStock    error
}

var errDisk = errors.New("disk full")

func (s *failingStore) SaveExpenses(ctx context.Context, d core.Date, lines []core.ExpenseLine) error {
	if s.failSaveExpenses {
		return errDisk
	}
	return s.Store.SaveExpenses(ctx, d, lines)
}

func (s *failingStore) SavePrices(ctx context.Context, prices core.PriceBook) error {
	if s.failSavePrices {
		return errDisk
	}
	return s.Store.SavePrices(ctx, prices)
}

func (s *failingStore) LoadStock(ctx context.Context, d core.Date) ([]core.StockLine, error) {
	if s.failLoadStock != nil {
		return nil, s.failLoadStock
	}
	return s.Store.LoadStock(ctx, d)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var jan1 = core.NewDate(2024, 1, 1)

func newService(store sheets.Store, pub Publisher) *LedgerService {
	return NewLedgerService(store, testCatalog, core.SummaryOptions{}, pub, nil)
}

func TestLoadSessionDefaults(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)

	loaded, err := svc.LoadSession(context.Background(), jan1)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Found || len(loaded.Warnings) != 0 {
		t.Fatalf("expected a fresh day, got found=%v warnings=%v", loaded.Found, loaded.Warnings)
	}
	sess := loaded.Session
	if len(sess.Stock.Lines) != len(testCatalog) {
		t.Fatalf("expected %d stock lines, got %d", len(testCatalog), len(sess.Stock.Lines))
	}
	if len(sess.Accommodation) != core.DefaultRoster {
		t.Fatalf("expected default roster, got %d rows", len(sess.Accommodation))
	}
	if len(sess.Expenses) != 0 || !sess.MoneyPaid.IsZero() {
		t.Fatal("expected empty expenses and zero money paid")
	}

	// The missing price book is created on first use.
	prices, err := store.LoadPrices(context.Background())
	if err != nil {
		t.Fatalf("price book not created: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 distinct items priced, got %d", len(prices))
	}
}

func TestLoadSessionInvalidDate(t *testing.T) {
	svc := newService(memory.New(), nil)
	if _, err := svc.LoadSession(context.Background(), core.Date{}); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newService(store, pub)

	loaded, _ := svc.LoadSession(ctx, jan1)
	sess := loaded.Session
	price := dec("250")
	changed, err := sess.Apply(core.DayInput{
		Stock: []core.StockEntry{
			{Opening: 10, Purchases: 5, Closing: 8, Price: &price},
			{},
			{Opening: 1},
		},
		Expenses: []core.ExpenseLine{
			{Description: "Fuel", Amount: dec("500")},
			{Description: "Repairs", Amount: dec("1200")},
		},
		MoneyPaid: dec("10"),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	summary, err := svc.SaveSession(ctx, sess, changed)
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	// 7*250 - 1700 - 10; the second TUSKER line keeps its old price until reload
	if !summary.NetProfit.Equal(dec("40")) {
		t.Fatalf("net profit = %s", summary.NetProfit)
	}

	if len(pub.msgs) != 1 || pub.msgs[0].Date != "2024-01-01" || pub.msgs[0].NetProfit != "40.00" {
		t.Fatalf("unexpected messages: %+v", pub.msgs)
	}
	if !reflect.DeepEqual(pub.msgs[0].ChangedPrices, []string{"TUSKER"}) {
		t.Fatalf("changed prices = %v", pub.msgs[0].ChangedPrices)
	}

	again, err := svc.LoadSession(ctx, jan1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !again.Found || len(again.Warnings) != 0 {
		t.Fatalf("reload found=%v warnings=%v", again.Found, again.Warnings)
	}
	if got := again.Session.Stock.Lines[0]; got.Sales() != 7 || !got.Amount().Equal(dec("1750")) {
		t.Fatalf("reloaded line = %+v", got)
	}
	if len(again.Session.Accommodation) != 0 {
		t.Fatalf("saved empty accommodation should reload empty, got %d rows", len(again.Session.Accommodation))
	}
	if !core.TotalExpenses(again.Session.Expenses).Equal(dec("1700")) {
		t.Fatal("expenses did not round-trip")
	}

	dates, err := svc.ListDates(ctx)
	if err != nil || len(dates) != 1 || dates[0].Key() != "2024-01-01" {
		t.Fatalf("ListDates = %v, %v", dates, err)
	}
}

func TestPriceWriteThroughToNewDate(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New(), nil)

	loaded, _ := svc.LoadSession(ctx, jan1)
	changed, err := loaded.Session.SetPrice(1, dec("200"))
	if err != nil || !changed {
		t.Fatalf("SetPrice: changed=%v err=%v", changed, err)
	}
	if err := svc.PersistPrices(ctx, loaded.Session.Prices, []string{"BALOZI"}); err != nil {
		t.Fatalf("PersistPrices: %v", err)
	}

	next, _ := svc.LoadSession(ctx, core.NewDate(2024, 1, 2))
	if !next.Session.Stock.Lines[1].Price.Equal(dec("200")) {
		t.Fatalf("new date price = %s, want 200", next.Session.Stock.Lines[1].Price)
	}
}

func TestPersistPricesFailureKeepsBook(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New()}
	svc := newService(store, nil)
	before, err := svc.Prices(ctx)
	if err != nil {
		t.Fatal(err)
	}

	store.failSavePrices = true
	book := before.Clone()
	if err := book.Set("TUSKER", dec("99")); err != nil {
		t.Fatal(err)
	}
	if err := svc.PersistPrices(ctx, book, []string{"TUSKER"}); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	after, err := svc.Prices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Price("TUSKER").Equal(before.Price("TUSKER")) {
		t.Fatalf("stored price changed after a failed save: %s", after.Price("TUSKER"))
	}
}

func TestSaveFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), failSaveExpenses: true}
	pub := &fakePublisher{}
	svc := newService(store, pub)

	loaded, _ := svc.LoadSession(ctx, jan1)
	sess := loaded.Session
	_ = sess.AddExpense(core.ExpenseLine{Description: "Fuel", Amount: dec("500")})
	before := sess.Clone()

	_, err := svc.SaveSession(ctx, sess, nil)
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !reflect.DeepEqual(before, sess) {
		t.Fatal("session modified by failed save")
	}
	if len(pub.msgs) != 0 {
		t.Fatal("no message should be published for a failed save")
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newService(memory.New(), pub)
	loaded, _ := svc.LoadSession(ctx, jan1)
	if _, err := svc.SaveSession(ctx, loaded.Session, nil); err != nil {
		t.Fatalf("SaveSession should succeed without the broker: %v", err)
	}
}

func TestLoadSessionReconcilesAndWarns(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	saved := []core.StockLine{
		{Item: "OLD ITEM", Opening: 3, Price: dec("10")},
		{Item: "TUSKER", Opening: 4, Price: dec("250")},
	}
	if err := store.SaveStock(ctx, jan1, saved); err != nil {
		t.Fatal(err)
	}
	svc := newService(store, nil)

	loaded, err := svc.LoadSession(ctx, jan1)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if !loaded.Found {
		t.Fatal("expected the date to be found")
	}
	if len(loaded.Warnings) != 1 || !strings.Contains(loaded.Warnings[0], "OLD ITEM") {
		t.Fatalf("warnings = %v", loaded.Warnings)
	}
	if loaded.Session.Stock.Lines[0].Opening != 4 || loaded.Session.Stock.Lines[2].Opening != 0 {
		t.Fatalf("unexpected reconciled lines: %+v", loaded.Session.Stock.Lines)
	}
}

func TestLoadSessionCorruptSection(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), failLoadStock: core.ErrDataInconsistency}
	svc := newService(store, nil)

	loaded, err := svc.LoadSession(ctx, jan1)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(loaded.Warnings) != 1 || !strings.HasPrefix(loaded.Warnings[0], "stock") {
		t.Fatalf("warnings = %v", loaded.Warnings)
	}
	if len(loaded.Session.Stock.Lines) != len(testCatalog) {
		t.Fatal("stock should fall back to the zeroed sheet")
	}
}

func TestSetItemPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, nil)

	if err := svc.SetItemPrice(ctx, "BALOZI", dec("180")); err != nil {
		t.Fatalf("SetItemPrice: %v", err)
	}
	prices, _ := store.LoadPrices(ctx)
	if !prices.Price("BALOZI").Equal(dec("180")) || len(prices) != 2 {
		t.Fatalf("prices = %v", prices)
	}
	if err := svc.SetItemPrice(ctx, "WHISKY", dec("1")); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown item, got %v", err)
	}
}

func TestSavedDay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newService(store, nil)

	if _, _, err := svc.SavedDay(ctx, jan1); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource, got %v", err)
	}
	saved := []core.StockLine{{Item: "OLD ITEM", Opening: 5, Closing: 2, Price: dec("10")}}
	if err := store.SaveStock(ctx, jan1, saved); err != nil {
		t.Fatal(err)
	}

	day, summary, err := svc.SavedDay(ctx, jan1)
	if err != nil {
		t.Fatalf("SavedDay: %v", err)
	}
	if !reflect.DeepEqual(day.Stock, saved) {
		t.Fatalf("saved lines should come back unreconciled, got %+v", day.Stock)
	}
	if len(day.Accommodation) != 0 || !day.MoneyPaid.IsZero() {
		t.Fatalf("missing sections should be empty: %+v", day)
	}
	if !summary.TotalSalesAmount.Equal(dec("30")) {
		t.Fatalf("TotalSalesAmount = %s, want 30", summary.TotalSalesAmount)
	}

	failing := newService(&failingStore{Store: store, failLoadStock: errDisk}, nil)
	if _, _, err := failing.SavedDay(ctx, jan1); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New(), nil)
	loaded, _ := svc.LoadSession(ctx, jan1)

	var buf bytes.Buffer
	if err := svc.Export(&buf, loaded.Session); err != nil || buf.Len() == 0 {
		t.Fatalf("Export: %v (%d bytes)", err, buf.Len())
	}

	dir := t.TempDir()
	if _, err := svc.ExportDate(ctx, jan1, dir); !errors.Is(err, core.ErrMissingResource) {
		t.Fatalf("expected ErrMissingResource for unsaved date, got %v", err)
	}
	if _, err := svc.SaveSession(ctx, loaded.Session, nil); err != nil {
		t.Fatal(err)
	}
	path, err := svc.ExportDate(ctx, jan1, dir)
	if err != nil {
		t.Fatalf("ExportDate: %v", err)
	}
	if filepath.Base(path) != "pillars_report_2024-01-01.xlsx" {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}
