package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for venue deduplication.
type Metrics struct {
	// Resolution metrics.
	CandidatesResolved *prometheus.CounterVec // labels: provider, outcome={unique,duplicate}
	DuplicateMatches   *prometheus.CounterVec // labels: rule={external_id,proximity}
	PartitionDuration  prometheus.Histogram
	SearchesTotal      *prometheus.CounterVec // labels: outcome={ok,partial,failed}

	// Provider metrics.
	ProviderRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	ProviderAPIDuration *prometheus.HistogramVec // labels: provider
	SearchCache         *prometheus.CounterVec   // labels: provider, result={hit,miss}
	ProvidersEnabled    prometheus.Gauge

	// Catalog snapshot metrics.
	SnapshotRefreshes *prometheus.CounterVec // labels: outcome={success,error}
	SnapshotSize      prometheus.Gauge

	// Decision publishing and import gating.
	DecisionsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	Imports            *prometheus.CounterVec // labels: outcome={created,duplicate,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.CandidatesResolved,
		m.DuplicateMatches,
		m.PartitionDuration,
		m.SearchesTotal,
		m.ProviderRequests,
		m.ProviderAPIDuration,
		m.SearchCache,
		m.ProvidersEnabled,
		m.SnapshotRefreshes,
		m.SnapshotSize,
		m.DecisionsPublished,
		m.PublishErrors,
		m.Imports,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CandidatesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "candidates_resolved_total",
			Help:      "Provider candidates checked against the catalog, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		DuplicateMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "duplicate_matches_total",
			Help:      "Duplicates found, by the rule that matched.",
		}, []string{"rule"}),
		PartitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "venue_dedup",
			Name:      "partition_duration_seconds",
			Help:      "Time spent partitioning one provider batch.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "searches_total",
			Help:      "Search sessions by outcome.",
		}, []string{"outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "provider_requests_total",
			Help:      "Place-search API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venue_dedup",
			Name:      "provider_api_duration_seconds",
			Help:      "Place-search API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		SearchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "search_cache_total",
			Help:      "Search cache lookups by provider and result.",
		}, []string{"provider", "result"}),
		ProvidersEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "venue_dedup",
			Name:      "providers_enabled",
			Help:      "Number of place-search providers configured.",
		}),
		SnapshotRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "snapshot_refreshes_total",
			Help:      "Catalog snapshot reloads by outcome.",
		}, []string{"outcome"}),
		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "venue_dedup",
			Name:      "snapshot_size",
			Help:      "Number of venues in the current catalog snapshot.",
		}),
		DecisionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "decisions_published_total",
			Help:      "Dedup decisions written to the decision topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "publish_errors_total",
			Help:      "Failed decision publish attempts.",
		}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venue_dedup",
			Name:      "imports_total",
			Help:      "Venue import requests by outcome.",
		}, []string{"outcome"}),
	}
}
