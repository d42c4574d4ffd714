package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/postgres"
	"github.com/coloradocovid/covid-data-etl/internal/api"
	"github.com/coloradocovid/covid-data-etl/internal/config"
	"github.com/coloradocovid/covid-data-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateAPI(); err != nil {
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

	cache := api.NewCache(db, cfg.CacheTTL, clockwork.NewRealClock(), logger, metrics)
	srv := api.NewServer(cache, cfg, logger)

	go func() {
		if err := srv.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := srv.Shutdown(); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
