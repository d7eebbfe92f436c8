package enhance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts Enhance calls by outcome.
	// Labels: outcome (success, no_api_key, request_failed, empty_result, network, canceled)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "enhance",
			Name:      "requests_total",
			Help:      "Total number of text enhancement requests by outcome",
		},
		[]string{"outcome"},
	)

	// RetriesTotal counts retried API attempts.
	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "enhance",
			Name:      "retries_total",
			Help:      "Total number of retried Gemini API attempts",
		},
	)

	// RequestDuration tracks end-to-end Enhance latency, retries included.
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "notesd",
			Subsystem: "enhance",
			Name:      "request_duration_seconds",
			Help:      "Duration of text enhancement requests in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func recordOutcome(err error) {
	if err == nil {
		RequestsTotal.WithLabelValues("success").Inc()
		return
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindNetwork
	}
	RequestsTotal.WithLabelValues(string(kind)).Inc()
}
