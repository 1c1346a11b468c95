package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pillars/internal/amqp"
	"pillars/internal/core"
	"pillars/internal/services"
	"pillars/internal/sheets/memory"
)

type fakeMirror struct {
	mu       sync.Mutex
	tabs     map[string][][]string
	dates    []core.Date
	ensured  [][]string
	writeErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{tabs: map[string][][]string{}}
}

func (m *fakeMirror) EnsureTabs(_ context.Context, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, names)
	return nil
}

func (m *fakeMirror) WriteTable(_ context.Context, tab string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.tabs[tab] = rows
	return nil
}

func (m *fakeMirror) ListDates(context.Context) ([]core.Date, error) {
	return m.dates, nil
}

var jan1 = core.NewDate(2024, 1, 1)

func savedLedger(t *testing.T, dates ...core.Date) *services.LedgerService {
	t.Helper()
	ctx := context.Background()
	ledger := services.NewLedgerService(memory.New(), core.Catalog{"TUSKER"}, core.SummaryOptions{}, nil, nil)
	if err := ledger.SetItemPrice(ctx, "TUSKER", decimal.NewFromInt(250)); err != nil {
		t.Fatal(err)
	}
	for _, d := range dates {
		loaded, err := ledger.LoadSession(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		s := loaded.Session
		if err := s.SetCounts(0, 10, 5, 8); err != nil {
			t.Fatal(err)
		}
		if _, err := ledger.SaveSession(ctx, s, nil); err != nil {
			t.Fatal(err)
		}
	}
	return ledger
}

func TestHandleDaySavedWritesEveryTab(t *testing.T) {
	mirror := newFakeMirror()
	w := NewSyncWorker(savedLedger(t, jan1), mirror, nil)

	msg := amqp.NewDaySavedMessage(jan1, "1750.00", nil)
	if err := w.HandleDaySaved(context.Background(), msg); err != nil {
		t.Fatalf("HandleDaySaved: %v", err)
	}

	want := []string{"2024-01-01 accommodation", "2024-01-01 expenses", "2024-01-01 stock", "2024-01-01 summary"}
	if len(mirror.ensured) != 1 || strings.Join(mirror.ensured[0], "|") != strings.Join(want, "|") {
		t.Fatalf("ensured tabs = %v", mirror.ensured)
	}
	if len(mirror.tabs) != 4 {
		t.Fatalf("expected 4 tabs written, got %d", len(mirror.tabs))
	}
	stock := mirror.tabs["2024-01-01 stock"]
	if len(stock) != 2 || stock[1][0] != "TUSKER" || stock[1][4] != "7" {
		t.Fatalf("stock tab = %v", stock)
	}
}

func TestHandleDaySavedSkipsUnsavedDate(t *testing.T) {
	mirror := newFakeMirror()
	w := NewSyncWorker(savedLedger(t), mirror, nil)
	if err := w.HandleDaySaved(context.Background(), amqp.NewDaySavedMessage(jan1, "0.00", nil)); err != nil {
		t.Fatalf("HandleDaySaved: %v", err)
	}
	if len(mirror.ensured) != 0 {
		t.Fatal("nothing should be mirrored for an unsaved date")
	}
}

func TestSyncDateMirrorsLinesAsSaved(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	saved := []core.StockLine{{Item: "RETIRED", Opening: 3, Closing: 1, Price: decimal.NewFromInt(100)}}
	if err := store.SaveStock(ctx, jan1, saved); err != nil {
		t.Fatal(err)
	}
	ledger := services.NewLedgerService(store, core.Catalog{"TUSKER"}, core.SummaryOptions{}, nil, nil)
	mirror := newFakeMirror()

	if err := NewSyncWorker(ledger, mirror, nil).SyncDate(ctx, jan1); err != nil {
		t.Fatalf("SyncDate: %v", err)
	}
	stock := mirror.tabs["2024-01-01 stock"]
	if len(stock) != 2 || stock[1][0] != "RETIRED" {
		t.Fatalf("stock tab = %v", stock)
	}
}

func TestHandleDaySavedWriteError(t *testing.T) {
	mirror := newFakeMirror()
	mirror.writeErr = errors.New("quota exceeded")
	w := NewSyncWorker(savedLedger(t, jan1), mirror, nil)
	err := w.HandleDaySaved(context.Background(), amqp.NewDaySavedMessage(jan1, "1750.00", nil))
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	jan2 := core.NewDate(2024, 1, 2)
	mirror := newFakeMirror()
	mirror.dates = []core.Date{jan1}
	w := NewSyncWorker(savedLedger(t, jan1, jan2), mirror, nil)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(mirror.ensured) != 1 || !strings.HasPrefix(mirror.ensured[0][0], "2024-01-02") {
		t.Fatalf("expected only 2024-01-02 to be mirrored, got %v", mirror.ensured)
	}
}

func TestExportPrevious(t *testing.T) {
	dir := t.TempDir()
	s := NewExportScheduler(savedLedger(t, jan1), dir, nil)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 0, 15, 0, 0, time.UTC) }

	path, err := s.ExportPrevious(context.Background())
	if err != nil {
		t.Fatalf("ExportPrevious: %v", err)
	}
	if path != filepath.Join(dir, "pillars_report_2024-01-01.xlsx") {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC) }
	if path, err := s.ExportPrevious(context.Background()); err != nil || path != "" {
		t.Fatalf("unsaved day should be skipped, got %q, %v", path, err)
	}
}

func TestExportSchedulerStartStop(t *testing.T) {
	s := NewExportScheduler(savedLedger(t), t.TempDir(), nil)
	if err := s.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := s.Start(context.Background(), "15 0 * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
