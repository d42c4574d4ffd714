// Package api serves the aggregated case and vaccine history over HTTP,
// fronted by a time-windowed cache so the aggregation queries run at most
// once per window regardless of read volume.
package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coloradocovid/covid-data-etl/internal/observability"
)

// LastUpdatedLayout is the timestamp format exposed in API responses.
const LastUpdatedLayout = "2006-01-02 15:04:05.000000"

// Aggregator runs the history and rolling-average queries. *postgres.DB
// satisfies it.
type Aggregator interface {
	History(ctx context.Context, table string, fields []string) ([]map[string]any, error)
	RollingAverage(ctx context.Context, table, field string) ([]map[string]any, error)
}

// Column sets for the two history views. The rolling averages smooth the
// day-over-day metrics, which swing hard across weekends and holidays.
var (
	caseHistoryFields = []string{
		"reporting_date", "positive", "positive_increase",
		"hospitalized_currently", "total_hospitalized", "hospitalized_increase",
		"death_confirmed", "death_increase", "tested", "tested_increase",
	}
	vaccineHistoryFields = []string{
		"reporting_date", "daily_qty", "daily_cumulative",
		"one_dose_increase", "one_dose_total", "two_doses_increase", "two_doses_total",
		"distributed_increase", "distributed_total",
	}
)

// snapshot is one fully materialized response body. Snapshots are immutable
// once published; readers share them without copying.
type snapshot struct {
	data        map[string]any
	lastUpdated time.Time
}

// Cache serves the aggregated dataset, recomputing at most once per TTL
// window. Reads within a window share the published snapshot; the first
// read after expiry (or after Invalidate) recomputes. Concurrent expired
// reads are serialized so the aggregation runs once, not once per reader.
type Cache struct {
	agg     Aggregator
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex // serializes refreshes only; reads are lock-free
	current atomic.Pointer[snapshot]
}

// NewCache creates a Cache around the aggregator.
func NewCache(agg Aggregator, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return &Cache{agg: agg, ttl: ttl, clock: clock, logger: logger, metrics: metrics}
}

// Get returns the aggregated dataset and its computation timestamp,
// refreshing first if the cached snapshot is missing or older than the TTL.
func (c *Cache) Get(ctx context.Context) (map[string]any, time.Time, error) {
	if snap := c.current.Load(); snap != nil && c.clock.Now().Sub(snap.lastUpdated) < c.ttl {
		c.metrics.CacheHits.Inc()
		return snap.data, snap.lastUpdated, nil
	}
	c.metrics.CacheMisses.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another reader may have refreshed while this one waited on the lock.
	if snap := c.current.Load(); snap != nil && c.clock.Now().Sub(snap.lastUpdated) < c.ttl {
		return snap.data, snap.lastUpdated, nil
	}

	snap, err := c.refresh(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	return snap.data, snap.lastUpdated, nil
}

// Invalidate drops the cached snapshot so the next read recomputes.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
	c.logger.Info("cache invalidated")
}

func (c *Cache) refresh(ctx context.Context) (*snapshot, error) {
	dailyCases, err := c.agg.History(ctx, "cases", caseHistoryFields)
	if err != nil {
		return nil, err
	}
	dailyVaccines, err := c.agg.History(ctx, "vaccines", vaccineHistoryFields)
	if err != nil {
		return nil, err
	}
	aveCases, err := c.agg.RollingAverage(ctx, "cases", "positive_increase")
	if err != nil {
		return nil, err
	}
	aveVaccines, err := c.agg.RollingAverage(ctx, "vaccines", "daily_qty")
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		data: map[string]any{
			"daily_cases":    dailyCases,
			"daily_vaccines": dailyVaccines,
			"ave_cases":      aveCases,
			"ave_vaccines":   aveVaccines,
		},
		lastUpdated: c.clock.Now().UTC(),
	}
	c.current.Store(snap)
	c.metrics.CacheRefreshes.Inc()
	c.logger.Info("cache refreshed",
		"case_rows", len(dailyCases), "vaccine_rows", len(dailyVaccines))
	return snap, nil
}
