package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalPathHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_path_hits",
			Help:      "Documents returned per search path call",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"path"},
	)

	RetrievalPathFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_path_failures_total",
			Help:      "Failed search path calls",
		},
		[]string{"path"},
	)

	RetrievalPathDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_path_duration_seconds",
			Help:      "Search path call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"path"},
	)

	RetrievalEvidenceSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_evidence_size",
			Help:      "Evidence items emitted per retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20},
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		RetrievalPathHits,
		RetrievalPathFailuresTotal,
		RetrievalPathDuration,
		RetrievalEvidenceSize,
	)
	retrievalMetricsRegistered = true
}
