package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carlens",
			Name:      "searches_total",
			Help:      "Total searches by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: "ok" / "empty_index" / "error"
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "carlens",
			Name:      "search_results",
			Help:      "Result count per search after filtering",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "carlens",
			Name:      "search_duration_seconds",
			Help:      "End to end search pipeline duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carlens",
			Name:      "import_rows_total",
			Help:      "Bulk import rows by outcome",
		},
		[]string{"outcome"}, // "imported" / "skipped" / "failed"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ImportRowsTotal)
	searchMetricsRegistered = true
}
