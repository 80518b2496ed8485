// Package metrics exposes Prometheus instrumentation for provider calls,
// fan-out aggregation and sync runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider client
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of provider requests by final outcome",
		},
		[]string{"provider", "outcome"}, // outcome: ok, transient, permanent, unavailable, canceled
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of provider requests including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Total number of retried provider attempts",
		},
		[]string{"provider"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Fan-out
	FanoutTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_tasks_total",
			Help: "Total number of fan-out tasks by result",
		},
		[]string{"operation", "result"}, // result: ok, failed, incomplete
	)

	// Sync
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by provider and result",
		},
		[]string{"provider", "result"},
	)

	SyncItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_items_total",
			Help: "Total number of synced list items by merge action",
		},
		[]string{"provider", "action"}, // action: created, overwritten, kept, skipped
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"provider"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"provider"},
	)
)

// RecordProviderRequest records the outcome and latency of one logical provider call.
func RecordProviderRequest(provider, outcome string, duration time.Duration) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordBreakerState stores a breaker state as 0=closed, 1=half-open, 2=open.
func RecordBreakerState(name, from, to string) {
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
