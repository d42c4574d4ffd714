package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the ingestion pipeline and the API server.
type Metrics struct {
	// Pipeline metrics.
	RunsTotal         *prometheus.CounterVec // labels: job={cases,vaccines,check}, outcome={success,no_new_data,failure}
	RowsUpserted      *prometheus.CounterVec // labels: table={cases,vaccines}
	UnknownMetricKeys prometheus.Counter
	FetchDuration     *prometheus.HistogramVec // labels: source={cases,vaccines,dashboard}
	UpsertDuration    *prometheus.HistogramVec // labels: table={cases,vaccines}
	AlertsSent        prometheus.Counter

	// API metrics.
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheRefreshes prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RowsUpserted,
		m.UnknownMetricKeys,
		m.FetchDuration,
		m.UpsertDuration,
		m.AlertsSent,
		m.CacheHits,
		m.CacheMisses,
		m.CacheRefreshes,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "runs_total",
			Help:      "Pipeline runs by job and outcome.",
		}, []string{"job", "outcome"}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "rows_upserted_total",
			Help:      "Rows written through the upsert writer by table.",
		}, []string{"table"}),
		UnknownMetricKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "unknown_metric_keys_total",
			Help:      "Vaccine pivot keys that did not match the lookup table.",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration by source.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		UpsertDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_etl",
			Name:      "upsert_duration_seconds",
			Help:      "Database upsert duration for a full batch by table.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"table"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "alerts_sent_total",
			Help:      "Operator notifications published to the alert topic.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "api_cache_hits_total",
			Help:      "Data endpoint reads served from the cached snapshot.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "api_cache_misses_total",
			Help:      "Data endpoint reads that found the cache empty or stale.",
		}),
		CacheRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "api_cache_refreshes_total",
			Help:      "Full aggregation recomputes triggered by cache misses.",
		}),
	}
}
