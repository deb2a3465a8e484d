package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index store Prometheus metrics.
var (
	IndexAppendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_appends_total",
			Help:      "Index append calls by outcome",
		},
		[]string{"status"},
	)

	IndexSlotsAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_slots_appended_total",
			Help:      "Total slots added to per-ticker indexes",
		},
	)

	IndexSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_searches_total",
			Help:      "Index searches by outcome",
		},
		[]string{"status"}, // "hit" / "empty" / "error"
	)

	IndexSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_search_duration_seconds",
			Help:      "Index search duration in seconds, including load",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	IndexCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_cache_total",
			Help:      "Ticker index cache hits and misses",
		},
		[]string{"result"},
	)

	SyncArtifactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_artifacts_total",
			Help:      "Remote artifact transfers by direction and outcome",
		},
		[]string{"direction", "status"}, // direction "push" / "pull"
	)
)
