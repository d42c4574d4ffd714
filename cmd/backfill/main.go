// Command backfill loads historical case records for a date range from the
// per-date archive API. Usage:
//
//	backfill <start YYYYMMDD> <end YYYYMMDD>
//
// Storage and database settings come from the environment, like the etl
// binary. The range is inclusive and must end before today.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/arcgis"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/postgres"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/s3store"
	"github.com/coloradocovid/covid-data-etl/internal/config"
	"github.com/coloradocovid/covid-data-etl/internal/domain"
	"github.com/coloradocovid/covid-data-etl/internal/observability"
	"github.com/coloradocovid/covid-data-etl/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "backfill:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: backfill <start YYYYMMDD> <end YYYYMMDD>")
	}

	start, err := time.Parse(domain.KeyDateLayout, args[0])
	if err != nil {
		return fmt.Errorf("bad start date %q: %w", args[0], err)
	}
	end, err := time.Parse(domain.KeyDateLayout, args[1])
	if err != nil {
		return fmt.Errorf("bad end date %q: %w", args[1], err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidatePipeline(); err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	// No scrape endpoint on a one-shot run; unregistered metrics are fine.
	metrics := observability.NewMetricsForTesting()

	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	blobs, err := s3store.New(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3Endpoint, logger)
	if err != nil {
		return err
	}

	fetcher := arcgis.NewClient(cfg.FetchTimeout, logger)

	p := pipeline.New(fetcher, blobs, db, nil, nil, cfg, logger, metrics)

	n, err := p.BackfillCases(ctx, start, end)
	if err != nil {
		return err
	}

	logger.Info("backfill finished", "rows", n)
	return nil
}
