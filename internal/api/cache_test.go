package api

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coloradocovid/covid-data-etl/internal/observability"
)

// mockAggregator counts query invocations and serves canned rows.
type mockAggregator struct {
	historyCalls int
	averageCalls int
	err          error
}

func (m *mockAggregator) History(_ context.Context, table string, _ []string) ([]map[string]any, error) {
	m.historyCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []map[string]any{{"reporting_date": "2021-04-02", "table": table}}, nil
}

func (m *mockAggregator) RollingAverage(_ context.Context, _, field string) ([]map[string]any, error) {
	m.averageCalls++
	if m.err != nil {
		return nil, m.err
	}
	return []map[string]any{{"reporting_date": "2021-04-02", field: float64(40)}}, nil
}

func newTestCache(agg Aggregator, ttl time.Duration, clock clockwork.Clock) *Cache {
	return NewCache(agg, ttl, clock, slog.Default(), observability.NewMetricsForTesting())
}

func TestCache_SecondReadWithinWindowIsServed(t *testing.T) {
	agg := &mockAggregator{}
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(agg, 15*time.Minute, clock)

	data, first, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Contains(t, data, "daily_cases")
	assert.Contains(t, data, "ave_vaccines")
	assert.Equal(t, 2, agg.historyCalls)
	assert.Equal(t, 2, agg.averageCalls)

	clock.Advance(5 * time.Minute)
	_, second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, agg.historyCalls) // no recompute inside the window
}

func TestCache_ExpiredWindowRecomputes(t *testing.T) {
	agg := &mockAggregator{}
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(agg, 15*time.Minute, clock)

	_, first, err := cache.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)
	_, second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, second.After(first))
	assert.Equal(t, 4, agg.historyCalls)
}

func TestCache_InvalidateForcesRecompute(t *testing.T) {
	agg := &mockAggregator{}
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(agg, 15*time.Minute, clock)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()

	clock.Advance(time.Second)
	_, _, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, agg.historyCalls)
}

func TestCache_RefreshFailureKeepsCacheEmpty(t *testing.T) {
	agg := &mockAggregator{err: errors.New("db down")}
	clock := clockwork.NewFakeClockAt(time.Date(2021, 4, 3, 12, 0, 0, 0, time.UTC))
	cache := newTestCache(agg, 15*time.Minute, clock)

	_, _, err := cache.Get(context.Background())
	require.Error(t, err)

	// Recovery works: the next read retries instead of serving a bad snapshot.
	agg.err = nil
	data, _, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Contains(t, data, "daily_cases")
}
