package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	startupCtx := context.Background()

	res, err := backend.NewFactory(logger).Open(startupCtx, cfg)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	queries := services.NewQueryService(res.Store)
	export, err := services.NewExportService(queries, services.ExportOptions{
		Locale: cfg.ExportLocale,
		BOM:    cfg.ExportBOM,
	})
	if err != nil {
		logger.Error("Failed to configure export", log.FieldError, err)
		os.Exit(1)
	}

	checks := make(map[string]apphttp.Pinger, len(res.Checks))
	for name, p := range res.Checks {
		checks[name] = p
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     services.NewLedgerService(res.Store, res.Publisher),
		Queries:    queries,
		Aggregates: services.NewAggregationService(res.Store),
		Export:     export,
		Checks:     checks,
	}, apphttp.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting ledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
