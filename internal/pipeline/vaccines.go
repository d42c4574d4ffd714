package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/dashboard"
	"github.com/coloradocovid/covid-data-etl/internal/adapter/s3store"
	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// RunVaccines executes one vaccine-data ingestion cycle. The pivot feed is
// the primary source; when it has no rows for the expected day the job falls
// back to scraping the public dashboard page, which lags the feed during
// state site migrations.
func (p *Pipeline) RunVaccines(ctx context.Context) (Status, error) {
	logger := p.logger.With("job", JobVaccines)

	latest, haveRows, err := p.db.LatestReportingDate(ctx, "vaccines")
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("latest vaccine date: %w", err))
	}
	newDay := domain.MountainToday()
	if haveRows {
		newDay = domain.ExpectedNextDate(latest)
	}

	raw, err := p.timedFetch(ctx, "vaccines", p.cfg.VaccineDataURL)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("fetch vaccine data: %w", err))
	}

	// The feed keeps re-serving statewide cumulative rows from earlier
	// publish batches, so a stale payload still normalizes into records.
	// Gate on the expected publish date before cleaning anything.
	if haveRows && !domain.IsNewDay(raw, newDay) {
		logger.Info("source not updated yet", "expected", newDay.Format(domain.ISODateLayout))
		p.finish(ctx, JobVaccines, false)
		return StatusNoNewData, nil
	}

	records, unknown, err := domain.NormalizeVaccines(raw, newDay)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("normalize vaccine data: %w", err))
	}
	if len(unknown) > 0 {
		logger.Warn("unrecognized vaccine metric keys", "keys", unknown)
		p.metrics.UnknownMetricKeys.Add(float64(len(unknown)))
	}

	today := domain.MountainToday()

	if len(records) == 0 {
		return p.runVaccinesFromDashboard(ctx, logger, newDay)
	}

	if err := p.blobs.Put(ctx, s3store.RawVaccineKey(today, "json"), raw); err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("store raw vaccine data: %w", err))
	}

	records = p.withIncreases(ctx, records)

	cleaned, err := json.Marshal(records)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("encode cleaned vaccine data: %w", err))
	}
	if err := p.blobs.Put(ctx, s3store.CleanedVaccineKey(today), cleaned); err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("store cleaned vaccine data: %w", err))
	}

	n, err := p.timedUpsert(ctx, "vaccines", func(ctx context.Context) (int, error) {
		return p.db.UpsertVaccines(ctx, records, p.cfg.BatchSize)
	})
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("upsert vaccine data: %w", err))
	}

	logger.Info("vaccine data loaded", "rows", n, "source", "pivot_feed")
	p.finish(ctx, JobVaccines, true)
	p.invalidateCache(ctx, logger)
	return StatusSuccess, nil
}

// runVaccinesFromDashboard handles the fallback path: scrape the dashboard
// page and derive one record for the new day against the stored totals.
func (p *Pipeline) runVaccinesFromDashboard(ctx context.Context, logger *slog.Logger, newDay time.Time) (Status, error) {
	html, err := p.timedFetch(ctx, "dashboard", p.cfg.DashboardURL)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("fetch vaccine dashboard: %w", err))
	}

	if !domain.IsNewDay(html, newDay) {
		logger.Info("source not updated yet", "expected", newDay.Format(domain.ISODateLayout))
		p.finish(ctx, JobVaccines, false)
		return StatusNoNewData, nil
	}

	today := domain.MountainToday()
	if err := p.blobs.Put(ctx, s3store.RawVaccineKey(today, "html"), html); err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("store raw vaccine page: %w", err))
	}

	snap, err := dashboard.ParseSnapshot(html, newDay)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("parse vaccine dashboard: %w", err))
	}

	// The page reports dose counts, not a cumulative doses figure, so the
	// cumulative is reconstructed as one-dose plus two-dose recipients.
	if snap.OneDoseTotal != nil && snap.TwoDosesTotal != nil {
		snap.DailyCumulative = domain.IntPtr(*snap.OneDoseTotal + *snap.TwoDosesTotal)
	}

	records := p.withIncreases(ctx, []domain.DailyVaccineRecord{snap})

	cleaned, err := json.Marshal(records)
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("encode cleaned vaccine data: %w", err))
	}
	if err := p.blobs.Put(ctx, s3store.CleanedVaccineKey(today), cleaned); err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("store cleaned vaccine data: %w", err))
	}

	n, err := p.timedUpsert(ctx, "vaccines", func(ctx context.Context) (int, error) {
		return p.db.UpsertVaccines(ctx, records, p.cfg.BatchSize)
	})
	if err != nil {
		return p.fail(ctx, JobVaccines, subjectVaccinesError, fmt.Errorf("upsert vaccine data: %w", err))
	}

	logger.Info("vaccine data loaded", "rows", n, "source", "dashboard")
	p.finish(ctx, JobVaccines, true)
	p.invalidateCache(ctx, logger)
	return StatusSuccess, nil
}

// withIncreases computes day-over-day deltas for records, seeding the first
// day from the most recent stored totals when they predate the batch.
func (p *Pipeline) withIncreases(ctx context.Context, records []domain.DailyVaccineRecord) []domain.DailyVaccineRecord {
	prev, havePrev, err := p.db.LatestVaccineTotals(ctx)
	if err != nil {
		p.logger.Warn("previous vaccine totals unavailable", "error", err)
		havePrev = false
	}

	if havePrev && prev.ReportingDate.Before(records[0].ReportingDate) {
		seeded := append([]domain.DailyVaccineRecord{prev}, records...)
		return domain.AddVaccineIncreases(seeded)[1:]
	}
	return domain.AddVaccineIncreases(records)
}
