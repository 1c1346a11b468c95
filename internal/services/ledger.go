package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"pillars/internal/amqp"
	"pillars/internal/core"
	"pillars/internal/export"
	"pillars/internal/log"
	"pillars/internal/sheets"
)

// Publisher announces saved days to the rest of the system.
type Publisher interface {
	PublishDaySaved(ctx context.Context, msg *amqp.DaySavedMessage) error
}

// Loaded is the result of opening a date for editing.
type Loaded struct {
	Session *core.Session
	// Found reports whether any section of the date had been saved.
	Found bool
	// Warnings describe sections that were replaced by defaults.
	Warnings []string
}

// LedgerService orchestrates loading, editing and saving days against a
// store, and announces saves over AMQP when a publisher is set.
type LedgerService struct {
	store     sheets.Store
	catalog   core.Catalog
	opts      core.SummaryOptions
	publisher Publisher
	logger    *log.Logger

	// mu serializes read-modify-write cycles on the price book.
	mu sync.Mutex
}

func NewLedgerService(store sheets.Store, catalog core.Catalog, opts core.SummaryOptions, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		store:     store,
		catalog:   catalog,
		opts:      opts,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// Catalog returns the catalog sessions are built from.
func (s *LedgerService) Catalog() core.Catalog {
	return s.catalog
}

// Options returns the summary options used by Summary.
func (s *LedgerService) Options() core.SummaryOptions {
	return s.opts
}

func persistenceErr(op string, err error) error {
	if errors.Is(err, core.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, core.ErrPersistence, err)
}

// Prices returns the stored price book. A missing book is created with
// every catalog item at zero.
func (s *LedgerService) Prices(ctx context.Context) (core.PriceBook, error) {
	prices, err := s.store.LoadPrices(ctx)
	if err == nil {
		return prices, nil
	}
	if !errors.Is(err, core.ErrMissingResource) {
		return nil, err
	}
	prices = core.NewPriceBook(s.catalog)
	if err := s.store.SavePrices(ctx, prices); err != nil {
		return nil, persistenceErr("create price book", err)
	}
	s.logger.InfoContext(ctx, "Created price book", log.FieldItems, len(prices))
	return prices, nil
}

type sectionLoader struct {
	found    bool
	warnings []string
}

// take keeps v when it loaded, falls back to def when the section is
// missing and records a warning for any other failure.
func take[T any](l *sectionLoader, what string, v T, err error, def T) T {
	switch {
	case err == nil:
		l.found = true
		return v
	case errors.Is(err, core.ErrMissingResource):
		return def
	default:
		l.found = true
		l.warnings = append(l.warnings, fmt.Sprintf("%s could not be loaded, showing defaults: %v", what, err))
		return def
	}
}

// LoadSession opens d for editing. Missing sections start from defaults
// and unreadable ones are reported as warnings; only an invalid date fails.
func (s *LedgerService) LoadSession(ctx context.Context, d core.Date) (*Loaded, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var l sectionLoader
	prices, err := s.Prices(ctx)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("price book could not be loaded, prices start at zero: %v", err))
		prices = core.NewPriceBook(s.catalog)
	}
	sess := core.NewSession(d, s.catalog, prices)

	stock, err := s.store.LoadStock(ctx, d)
	if saved := take(&l, "stock", stock, err, nil); err == nil {
		sheet, rec := core.ReconcileStock(s.catalog, prices, saved)
		sess.Stock = sheet
		if !rec.Consistent() {
			l.warnings = append(l.warnings, rec.Err().Error())
			s.logger.WarnContext(ctx, "Saved stock sheet differs from catalog",
				log.FieldDate, d.Key(), "dropped", rec.Dropped, "defaulted", rec.Defaulted)
		}
	}

	records, err := s.store.LoadAccommodation(ctx, d)
	sess.Accommodation = take(&l, "accommodation", core.Rows[core.AccommodationRecord](records), err, sess.Accommodation)

	expenses, err := s.store.LoadExpenses(ctx, d)
	sess.Expenses = take(&l, "expenses", core.Rows[core.ExpenseLine](expenses), err, sess.Expenses)

	paid, err := s.store.LoadAmount(ctx, d, sheets.SectionMoneyPaid)
	sess.MoneyPaid = take(&l, "money paid to boss", paid, err, sess.MoneyPaid)

	invested, err := s.store.LoadAmount(ctx, d, sheets.SectionMoneyInvested)
	sess.MoneyInvested = take(&l, "money invested", invested, err, sess.MoneyInvested)

	for _, w := range l.warnings {
		s.logger.WarnContext(ctx, "Loaded day with warning", log.FieldDate, d.Key(), log.FieldError, w)
	}
	return &Loaded{Session: sess, Found: l.found, Warnings: l.warnings}, nil
}

// PersistPrices merges the prices of items from prices into the stored
// book. Other stored prices are left as they are.
func (s *LedgerService) PersistPrices(ctx context.Context, prices core.PriceBook, items []string) error {
	if len(items) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.Prices(ctx)
	if err != nil {
		return persistenceErr("load price book", err)
	}
	for _, item := range items {
		if err := stored.Set(item, prices.Price(item)); err != nil {
			return err
		}
	}
	if err := s.store.SavePrices(ctx, stored); err != nil {
		return persistenceErr("save price book", err)
	}
	s.logger.InfoContext(ctx, "Price book updated", log.FieldItems, items)
	return nil
}

// SetItemPrice changes the stored price of a catalog item outside any session.
func (s *LedgerService) SetItemPrice(ctx context.Context, item string, price decimal.Decimal) error {
	known := false
	for _, it := range s.catalog {
		if it == item {
			known = true
			break
		}
	}
	if !known {
		return &core.InputError{Field: "item", Value: item, Reason: "not in the catalog"}
	}
	book := core.PriceBook{}
	if err := book.Set(item, price); err != nil {
		return err
	}
	return s.PersistPrices(ctx, book, []string{item})
}

// SaveSession persists every section of sess, merging the prices of
// changed items first. sess is never modified; on failure the error wraps
// core.ErrPersistence and the caller keeps its unsaved edits.
func (s *LedgerService) SaveSession(ctx context.Context, sess *core.Session, changed []string) (core.DailySummary, error) {
	if err := sess.Date.Validate(); err != nil {
		return core.DailySummary{}, err
	}
	if err := s.PersistPrices(ctx, sess.Prices, changed); err != nil {
		return core.DailySummary{}, err
	}
	if err := sheets.SaveDay(ctx, s.store, sheets.DayFromSession(sess)); err != nil {
		return core.DailySummary{}, persistenceErr("save day", err)
	}

	summary := s.Summary(sess)
	net := core.FormatPlain(summary.NetProfit)
	log.NewStructuredLogger(s.logger).LogDaySaved(ctx, sess.Date.Key(), net, len(changed))

	if s.publisher != nil {
		msg := amqp.NewDaySavedMessage(sess.Date, net, changed)
		if err := s.publisher.PublishDaySaved(ctx, msg); err != nil {
			// The day is saved locally; the mirror catches up on the next save.
			s.logger.ErrorContext(ctx, "Failed to publish day saved message",
				log.FieldDate, sess.Date.Key(), log.FieldError, err)
		}
	}
	return summary, nil
}

// Summary computes the derived profit view of sess.
func (s *LedgerService) Summary(sess *core.Session) core.DailySummary {
	return core.Summarize(sess, s.opts)
}

// ListDates returns the saved dates, most recent first.
func (s *LedgerService) ListDates(ctx context.Context) ([]core.Date, error) {
	dates, err := s.store.ListDates(ctx)
	if err != nil {
		return nil, persistenceErr("list dates", err)
	}
	return dates, nil
}

// Export writes the XLSX report of sess to w.
func (s *LedgerService) Export(w io.Writer, sess *core.Session) error {
	return export.Write(w, sheets.DayFromSession(sess), s.Summary(sess))
}

// SavedDay returns d exactly as stored, without reconciling it against the
// catalog, together with its summary. A date with nothing saved yields
// core.ErrMissingResource.
func (s *LedgerService) SavedDay(ctx context.Context, d core.Date) (sheets.Day, core.DailySummary, error) {
	if err := d.Validate(); err != nil {
		return sheets.Day{}, core.DailySummary{}, err
	}
	day, found, err := sheets.LoadDay(ctx, s.store, d)
	if err != nil {
		return sheets.Day{}, core.DailySummary{}, persistenceErr("load saved day", err)
	}
	if !found {
		return sheets.Day{}, core.DailySummary{}, fmt.Errorf("%w: nothing saved for %s", core.ErrMissingResource, d)
	}
	sess := &core.Session{
		Date:          d,
		Catalog:       s.catalog,
		Stock:         core.StockSheet{Lines: day.Stock},
		Accommodation: day.Accommodation,
		Expenses:      day.Expenses,
		MoneyPaid:     day.MoneyPaid,
		MoneyInvested: day.MoneyInvested,
	}
	return day, s.Summary(sess), nil
}

// ExportDate writes the report of a saved date into dir and returns its
// path. A date with nothing saved yields core.ErrMissingResource.
func (s *LedgerService) ExportDate(ctx context.Context, d core.Date, dir string) (string, error) {
	day, summary, err := s.SavedDay(ctx, d)
	if err != nil {
		return "", err
	}
	path, err := export.SaveFile(dir, day, summary)
	if err != nil {
		return "", persistenceErr("export day", err)
	}
	s.logger.InfoContext(ctx, "Exported day", log.FieldDate, d.Key(), log.FieldFile, path)
	return path, nil
}
