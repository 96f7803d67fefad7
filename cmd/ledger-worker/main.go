package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/mirror"
	"ledger/internal/mirror/elastic"
	"ledger/internal/mirror/sheets"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	// the worker always reads the shared SQLite file, whatever the API uses
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	mirrors := openMirrors(startupCtx, cfg, logger)
	if len(mirrors) == 0 {
		cancelStartup()
		logger.Error("No mirror configured; set GOOGLE_SPREADSHEET_ID or ELASTICSEARCH_URLS")
		os.Exit(1)
	}

	client, err := amqp.NewClient(startupCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cancelStartup()
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(repo, mirrors...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup reconcile")
	if err := syncWorker.Reconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err)
	}

	go syncWorker.RunPeriodic(ctx, cfg.SyncInterval)

	if err := client.Consume(ctx, syncWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

// openMirrors builds every mirror the configuration names. A mirror that
// fails to start is logged and left out.
func openMirrors(ctx context.Context, cfg *config.Config, logger *log.Logger) []mirror.Mirror {
	logger = logger.WithComponent(log.ComponentMirror)
	var out []mirror.Mirror

	if cfg.GoogleSpreadsheetID != "" {
		m, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
		} else {
			out = append(out, m)
			logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
		}
	}

	if len(cfg.ElasticsearchURLs) > 0 {
		m, err := elastic.New(cfg.ElasticsearchURLs, cfg.ElasticsearchIndex)
		if err == nil {
			err = m.EnsureIndex(ctx)
		}
		if err != nil {
			logger.Error("Failed to initialize Elasticsearch mirror", log.FieldError, err)
		} else {
			out = append(out, m)
			logger.Info("Elasticsearch mirror enabled", "index", cfg.ElasticsearchIndex)
		}
	}
	return out
}
