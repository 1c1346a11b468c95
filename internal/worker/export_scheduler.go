package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"pillars/internal/core"
	"pillars/internal/log"
	"pillars/internal/services"
)

// ExportScheduler writes the XLSX report of the previous day on a cron
// schedule.
type ExportScheduler struct {
	ledger *services.LedgerService
	dir    string
	cron   *cron.Cron
	now    func() time.Time
	logger *log.Logger
}

func NewExportScheduler(ledger *services.LedgerService, dir string, logger *log.Logger) *ExportScheduler {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportScheduler{
		ledger: ledger,
		dir:    dir,
		cron:   cron.New(),
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// Start registers the job and starts the scheduler.
func (s *ExportScheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.ExportPrevious(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled export failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule export %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.InfoContext(ctx, "Export scheduler started", "schedule", spec, "dir", s.dir)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *ExportScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExportPrevious writes the report of yesterday. An unsaved day is skipped
// and yields an empty path.
func (s *ExportScheduler) ExportPrevious(ctx context.Context) (string, error) {
	y := s.now().AddDate(0, 0, -1)
	d := core.NewDate(y.Year(), int(y.Month()), y.Day())

	path, err := s.ledger.ExportDate(ctx, d, s.dir)
	if errors.Is(err, core.ErrMissingResource) {
		s.logger.InfoContext(ctx, "Nothing saved, skipping export", log.FieldDate, d.Key())
		return "", nil
	}
	return path, err
}
