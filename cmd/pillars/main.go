package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"pillars/internal/amqp"
	"pillars/internal/cli"
	apphttp "pillars/internal/http"
	"pillars/internal/log"
	"pillars/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	// Publishing is optional: without AMQP the worker simply never hears
	// about saved days.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient, publisher = c, c
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledger, err := cli.OpenLedger(context.Background(), cfg, publisher, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:           ledger.LedgerService,
		Ready:            ledger.Backend.Healthy,
		Logger:           logger,
		SessionTTL:       cfg.SessionTTL,
		SessionCacheSize: cfg.SessionCacheSize,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := ledger.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	})

	logger.Info("Starting pillars server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
