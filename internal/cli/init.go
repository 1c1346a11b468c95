// Package cli provides the initialization shared by cmd/pillars,
// cmd/pillars-worker and cmd/pillars-cli, and the subcommands of the
// latter.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pillars/internal/backend"
	"pillars/internal/config"
	"pillars/internal/core"
	"pillars/internal/log"
	"pillars/internal/services"
)

// SetupLogger builds the application logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = log.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// LoadCatalog reads CATALOG_FILE, or returns the built-in catalog when it
// is unset.
func LoadCatalog(cfg *config.Config) (core.Catalog, error) {
	if cfg.CatalogFile == "" {
		return core.DefaultCatalog(), nil
	}
	return core.LoadCatalog(cfg.CatalogFile)
}

// Ledger is an opened ledger service with the backend behind it.
type Ledger struct {
	*services.LedgerService
	Backend *backend.BackendResult
}

// Close releases the backend.
func (l *Ledger) Close() error {
	return l.Backend.Close()
}

// OpenLedger creates the configured backend and the ledger service on top
// of it. publisher may be nil.
func OpenLedger(ctx context.Context, cfg *config.Config, publisher services.Publisher, logger *log.Logger) (*Ledger, error) {
	if logger == nil {
		logger = log.Discard()
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalog(cfg)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	opts := core.SummaryOptions{IncludeAccommodation: cfg.SummaryIncludeAccommodation}
	svc := services.NewLedgerService(res.Store, catalog, opts, publisher, logger)
	logger.Info("Ledger ready", log.FieldBackend, bcfg.Type.String(), log.FieldItems, len(catalog))
	return &Ledger{LedgerService: svc, Backend: res}, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
