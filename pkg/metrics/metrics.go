// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages appended to conversation logs.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// DelegationsTotal tracks delegation decisions by outcome.
	DelegationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delegations_total",
			Help: "Delegation decisions by outcome",
		},
		[]string{"outcome"},
	)

	// DelegationDepth tracks how deep delegation chains run.
	DelegationDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delegation_depth",
			Help:    "Depth of the agent that produced each answer",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// LLMCompletionDuration tracks completion provider call duration.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "Completion provider call duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// ShareResolvesTotal tracks public share resolutions.
	ShareResolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "share_resolves_total",
			Help: "Public share resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// AuthDegradedTotal tracks degraded-mode authentications.
	AuthDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_degraded_total",
			Help: "Authentications accepted in degraded mode",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
