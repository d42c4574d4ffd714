package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/apiclient"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/arcgis"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/notify"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/ops"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/postgres"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/s3store"
	"github.com/coloradocovid/covid-data-etl/internal/config"
	"github.com/coloradocovid/covid-data-etl/internal/observability"
	"github.com/coloradocovid/covid-data-etl/internal/pipeline"
	"github.com/coloradocovid/covid-data-etl/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidatePipeline(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	blobs, err := s3store.New(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3Endpoint, logger)
	if err != nil {
		logger.Error("s3 client setup failed", "error", err)
		os.Exit(1)
	}

	notifier := notify.NewNotifier(cfg.KafkaBrokers, cfg.AlertTopic, logger)
	fetcher := arcgis.NewClient(cfg.FetchTimeout, logger)

	// The cache poke is optional: without a configured API endpoint the
	// cache simply expires on its own schedule.
	var invalidator pipeline.CacheInvalidator
	if cfg.CacheInvalidateURL != "" {
		invalidator = apiclient.NewInvalidator(cfg.CacheInvalidateURL, cfg.CacheInvalidateKey, cfg.FetchTimeout)
		logger.Info("cache invalidation enabled", "url", cfg.CacheInvalidateURL)
	}

	p := pipeline.New(fetcher, blobs, db, notifier, invalidator, cfg, logger, metrics)

	sched := scheduler.New(p, cfg.ScheduleInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := ops.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
	if err := notifier.Close(); err != nil {
		logger.Error("notifier close error", "error", err)
	}

	logger.Info("shutdown complete")
}
