package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pensieve",
			Name:      "retrieval_results_total",
			Help:      "Total number of chunks returned to callers by source kind",
		},
		[]string{"source"},
	)

	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pensieve",
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"operation", "status"},
	)
)

var retMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalResultsTotal)
	prometheus.MustRegister(RetrievalRequestsTotal)
	retMetricsRegistered = true
}
