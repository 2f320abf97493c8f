package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting fintrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	businessSvc := services.NewBusinessService(repo)
	spendingSvc := services.NewSpendingService(repo)

	// Google Sheets export is optional.
	var exporter sheets.SummaryWriter
	var summaries worker.SummarySource
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		exporter = sheetsClient
		summaries = spendingSvc
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	w := worker.New(businessSvc, summaries, exporter, worker.Config{
		PollInterval:   cfg.RecognizePollInterval,
		ExportInterval: cfg.SummaryExportInterval,
		ExportUserID:   cfg.ExportUserID,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start recognize worker", applog.FieldError, err.Error())
		os.Exit(1)
	}

	// AMQP consumption is optional: the periodic pass covers imports that
	// happen while the broker is down.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic recognition",
				applog.FieldError, err.Error())
		} else {
			defer amqpClient.Close()
			go func() {
				handler := func(msg *amqp.ImportCompletedMessage) error {
					return w.HandleImportEvent(ctx, msg)
				}
				if err := amqpClient.ConsumeImportEvents(ctx, handler); err != nil {
					if err != context.Canceled {
						logger.Error("Message consumption failed", applog.FieldError, err.Error())
					}
					cancel()
				}
			}()
		}
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := w.Stop(shutdownCtx); err != nil {
		logger.Warn("Worker shutdown timed out", applog.FieldError, err.Error())
	}
	cancel()
	logger.Info("Worker stopped")
}
