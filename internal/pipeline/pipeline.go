// Package pipeline orchestrates the daily ingestion jobs: fetch the
// upstream payload, decide whether it carries a new reporting day, archive
// the raw and cleaned artifacts, compute day-over-day deltas, and upsert
// into Postgres. Failures publish an operator alert and every run is
// recorded in the invokes audit table.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coloradocovid/covid-data-etl/internal/adapter/s3store"
	"github.com/coloradocovid/covid-data-etl/internal/config"
	"github.com/coloradocovid/covid-data-etl/internal/domain"
	"github.com/coloradocovid/covid-data-etl/internal/observability"
)

// Status is the outcome of one pipeline run.
type Status string

const (
	StatusSuccess   Status = "Success"
	StatusNoNewData Status = "Data not updated yet"
	StatusFailed    Status = "Failed"
)

// Job names recorded in the invokes table.
const (
	JobCases    = "etl-cases"
	JobVaccines = "etl-vaccines"
	JobCheck    = "daily-check"
	JobBackfill = "backfill-cases"
)

// Alert subjects published on failure or missing data.
const (
	subjectCasesError    = "ColoradoCovidData Error - Cases"
	subjectVaccinesError = "ColoradoCovidData Error - Vaccines"
	subjectMissingData   = "ColoradoCovidData Missing Data"
)

// Fetcher retrieves one upstream payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// BlobStore archives raw and cleaned artifacts.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Database is the persistence surface the jobs need.
type Database interface {
	LatestReportingDate(ctx context.Context, table string) (time.Time, bool, error)
	UpsertCases(ctx context.Context, records []domain.DailyCaseRecord, batchSize int) (int, error)
	UpsertVaccines(ctx context.Context, records []domain.DailyVaccineRecord, batchSize int) (int, error)
	LatestVaccineTotals(ctx context.Context) (domain.DailyVaccineRecord, bool, error)
	CaseOnDate(ctx context.Context, day time.Time) (domain.DailyCaseRecord, bool, error)
	RecordInvoke(ctx context.Context, functionName string, newData bool) error
}

// Notifier publishes operator alerts.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}

// CacheInvalidator tells the API to drop its cached aggregation after a load.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Pipeline wires the collaborators for all ingestion jobs.
type Pipeline struct {
	fetcher     Fetcher
	blobs       BlobStore
	db          Database
	notifier    Notifier
	invalidator CacheInvalidator
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool

	mu       sync.Mutex
	lastRuns map[string]RunSummary
}

// RunSummary records the outcome of the most recent run of one job.
type RunSummary struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// New creates a Pipeline. invalidator may be nil when no API instance is
// configured; the jobs then skip the cache poke.
func New(f Fetcher, b BlobStore, db Database, n Notifier, inv CacheInvalidator, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:     f,
		blobs:       b,
		db:          db,
		notifier:    n,
		invalidator: inv,
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
		lastRuns:    map[string]RunSummary{},
	}
}

// LastRuns returns a copy of the most recent outcome per job.
func (p *Pipeline) LastRuns() map[string]RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]RunSummary, len(p.lastRuns))
	for job, s := range p.lastRuns {
		out[job] = s
	}
	return out
}

func (p *Pipeline) recordRun(job string, status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRuns[job] = RunSummary{Status: status, At: time.Now().UTC()}
}

// CheckReadiness returns nil once at least one job has completed a full
// cycle, whether or not it found new data.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// RunCases executes one case-data ingestion cycle.
func (p *Pipeline) RunCases(ctx context.Context) (Status, error) {
	logger := p.logger.With("job", JobCases)

	latest, haveRows, err := p.db.LatestReportingDate(ctx, "cases")
	if err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("latest case date: %w", err))
	}

	raw, err := p.timedFetch(ctx, "cases", p.cfg.CaseDataURL)
	if err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("fetch case data: %w", err))
	}

	if haveRows {
		expected := domain.ExpectedNextDate(latest)
		if !domain.IsNewDay(raw, expected) {
			logger.Info("source not updated yet", "expected", expected.Format(domain.ISODateLayout))
			p.finish(ctx, JobCases, false)
			return StatusNoNewData, nil
		}
	}

	today := domain.MountainToday()
	if err := p.blobs.Put(ctx, s3store.RawCasesKey(today), raw); err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("store raw case data: %w", err))
	}

	records, err := domain.NormalizeCases(raw)
	if err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("normalize case data: %w", err))
	}
	records = domain.AddCaseIncreases(records)

	cleaned, err := json.Marshal(records)
	if err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("encode cleaned case data: %w", err))
	}
	if err := p.blobs.Put(ctx, s3store.CleanedCasesKey(today), cleaned); err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("store cleaned case data: %w", err))
	}

	n, err := p.timedUpsert(ctx, "cases", func(ctx context.Context) (int, error) {
		return p.db.UpsertCases(ctx, records, p.cfg.BatchSize)
	})
	if err != nil {
		return p.fail(ctx, JobCases, subjectCasesError, fmt.Errorf("upsert case data: %w", err))
	}

	logger.Info("case data loaded", "rows", n)
	p.finish(ctx, JobCases, true)
	p.invalidateCache(ctx, logger)
	return StatusSuccess, nil
}

// timedFetch fetches url and records the duration under source.
func (p *Pipeline) timedFetch(ctx context.Context, source, url string) ([]byte, error) {
	start := time.Now()
	raw, err := p.fetcher.Fetch(ctx, url)
	if err == nil {
		p.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}
	return raw, err
}

// timedUpsert runs the upsert and records the duration and row count.
func (p *Pipeline) timedUpsert(ctx context.Context, table string, upsert func(ctx context.Context) (int, error)) (int, error) {
	start := time.Now()
	n, err := upsert(ctx)
	if err != nil {
		return n, err
	}
	p.metrics.UpsertDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	p.metrics.RowsUpserted.WithLabelValues(table).Add(float64(n))
	return n, nil
}

// finish records a successful cycle: the invoke audit row, the run metric,
// and the readiness flag. newData is false for a no-new-data cycle.
func (p *Pipeline) finish(ctx context.Context, job string, newData bool) {
	outcome := "no_new_data"
	status := StatusNoNewData
	if newData {
		outcome = "success"
		status = StatusSuccess
	}
	p.metrics.RunsTotal.WithLabelValues(job, outcome).Inc()
	p.recordRun(job, status)
	p.ready.Store(true)

	if err := p.db.RecordInvoke(ctx, job, newData); err != nil {
		p.logger.Warn("record invoke failed", "job", job, "error", err)
	}
}

// fail records a failed cycle and publishes an alert. The alert and the
// audit row are best effort; the original error is always returned.
func (p *Pipeline) fail(ctx context.Context, job, subject string, err error) (Status, error) {
	p.logger.Error("pipeline run failed", "job", job, "error", err)
	p.metrics.RunsTotal.WithLabelValues(job, "failure").Inc()
	p.recordRun(job, StatusFailed)

	if p.notifier != nil {
		if pubErr := p.notifier.Publish(ctx, subject, err.Error()); pubErr != nil {
			p.logger.Error("alert publish failed", "job", job, "error", pubErr)
		} else {
			p.metrics.AlertsSent.Inc()
		}
	}
	if invErr := p.db.RecordInvoke(ctx, job, false); invErr != nil {
		p.logger.Warn("record invoke failed", "job", job, "error", invErr)
	}
	return StatusFailed, err
}

// invalidateCache pokes the API after a successful load. Failures are
// logged only; the data is already durable and the cache expires on its own.
func (p *Pipeline) invalidateCache(ctx context.Context, logger *slog.Logger) {
	if p.invalidator == nil {
		return
	}
	if err := p.invalidator.Invalidate(ctx); err != nil {
		logger.Warn("cache invalidation failed", "error", err)
	}
}
