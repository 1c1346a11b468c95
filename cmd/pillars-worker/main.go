package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pillars/internal/amqp"
	"pillars/internal/cli"
	"pillars/internal/log"
	gsheet "pillars/internal/sheets/google"
	"pillars/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting pillars-worker")

	ledger, err := cli.OpenLedger(context.Background(), cfg, nil, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer ledger.Close()

	scheduler := worker.NewExportScheduler(ledger.LedgerService, cfg.ExportDir, logger)

	// The mirror is optional; without it the worker only runs scheduled
	// exports.
	var syncWorker *worker.SyncWorker
	if cfg.SheetsEnabled() {
		mirror, err := gsheet.NewFromCredentials(context.Background(), gsheet.Credentials{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		syncWorker = worker.NewSyncWorker(ledger.LedgerService, mirror, logger)
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var amqpClient *amqp.Client
	if syncWorker != nil && cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("Skipping AMQP message consumption")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Export scheduler did not stop in time", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
	})

	if cfg.ExportSchedule != "" {
		if err := scheduler.Start(ctx, cfg.ExportSchedule); err != nil {
			logger.Error("Failed to start export scheduler", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("Scheduled export disabled - no EXPORT_SCHEDULE provided")
	}

	if syncWorker != nil {
		// Catch up on days saved while the worker was down.
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", log.FieldError, err)
		}
	}

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeDaySaved(ctx, syncWorker.HandleDaySaved); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	<-done
	logger.Info("Worker shutdown complete")
}
