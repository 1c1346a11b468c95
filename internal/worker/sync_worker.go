package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"pillars/internal/amqp"
	"pillars/internal/core"
	"pillars/internal/log"
	"pillars/internal/services"
	"pillars/internal/sheets"
	gsheet "pillars/internal/sheets/google"
)

// Mirror is the spreadsheet a saved day is copied into.
type Mirror interface {
	EnsureTabs(ctx context.Context, names []string) error
	WriteTable(ctx context.Context, tab string, rows [][]string) error
	ListDates(ctx context.Context) ([]core.Date, error)
}

// maxParallelWrites bounds concurrent tab writes against the Sheets quota.
const maxParallelWrites = 4

// SyncWorker mirrors saved days into Google Sheets.
type SyncWorker struct {
	ledger *services.LedgerService
	mirror Mirror
	logger *log.Logger
}

func NewSyncWorker(ledger *services.LedgerService, mirror Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		ledger: ledger,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleDaySaved processes a single day.saved message from AMQP. Returning
// an error requeues the message.
func (w *SyncWorker) HandleDaySaved(ctx context.Context, msg *amqp.DaySavedMessage) error {
	d, err := msg.Day()
	if err != nil {
		return fmt.Errorf("day saved message: %w", err)
	}
	w.logger.InfoContext(ctx, "Processing day saved message",
		log.FieldDate, msg.Date, log.FieldNetProfit, msg.NetProfit, "changed_prices", msg.ChangedPrices)
	return w.SyncDate(ctx, d)
}

// SyncDate copies d from the store to the mirror exactly as saved. A read
// failure is returned so the message is requeued.
func (w *SyncWorker) SyncDate(ctx context.Context, d core.Date) error {
	day, summary, err := w.ledger.SavedDay(ctx, d)
	if errors.Is(err, core.ErrMissingResource) {
		w.logger.WarnContext(ctx, "Nothing saved for date, skipping mirror", log.FieldDate, d.Key())
		return nil
	}
	if err != nil {
		return err
	}
	return w.syncDay(ctx, day, summary)
}

func (w *SyncWorker) syncDay(ctx context.Context, day sheets.Day, summary core.DailySummary) error {
	tables := gsheet.Tables(day, summary)
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	if err := w.mirror.EnsureTabs(ctx, names); err != nil {
		return fmt.Errorf("ensure tabs for %s: %w", day.Date, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelWrites)
	for _, name := range names {
		name := name
		rows := tables[name]
		g.Go(func() error {
			if err := w.mirror.WriteTable(gctx, name, rows); err != nil {
				return fmt.Errorf("write tab %q: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Mirrored day", log.FieldDate, day.Date.Key(), "tabs", len(names))
	return nil
}

// StartupSyncCheck mirrors every saved date missing from the spreadsheet.
// It recovers from messages lost while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	saved, err := w.ledger.ListDates(ctx)
	if err != nil {
		return fmt.Errorf("list saved dates: %w", err)
	}
	mirrored, err := w.mirror.ListDates(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored dates: %w", err)
	}
	have := make(map[string]bool, len(mirrored))
	for _, d := range mirrored {
		have[d.Key()] = true
	}

	synced, failed := 0, 0
	for _, d := range saved {
		if have[d.Key()] {
			continue
		}
		if err := w.SyncDate(ctx, d); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror date during startup", log.FieldDate, d.Key(), log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"saved", len(saved), "synced", synced, "errors", failed)
	return nil
}
