// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts completed checks by protocol and result class
	// ("2xx", "5xx", ...).
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthd",
			Name:      "checks_total",
			Help:      "Completed health checks by protocol and result class.",
		},
		[]string{"protocol", "class"},
	)

	// CheckDuration observes wall-clock check latency by protocol.
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "healthd",
			Name:      "check_duration_seconds",
			Help:      "Health check duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"protocol"},
	)

	// CacheHits counts checks served from the result cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "healthd",
		Name:      "cache_hits_total",
		Help:      "Checks answered from the result cache.",
	})

	// CacheMisses counts checks that had to probe the target.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "healthd",
		Name:      "cache_misses_total",
		Help:      "Checks that missed the result cache.",
	})
)

// Class buckets a status code into the label form used by ChecksTotal.
func Class(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
