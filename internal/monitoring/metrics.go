// Package monitoring exposes prometheus metrics for the service.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	statsClientFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_client_failures_total",
			Help: "Failed calls to the statistics collector",
		},
		[]string{"operation"},
	)

	requestDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "participation_decisions_total",
			Help: "Participation request decisions by outcome",
		},
		[]string{"decision"},
	)
)

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// TrackStatsFailure counts a degraded call to the statistics collector.
func TrackStatsFailure(operation string) {
	statsClientFailures.WithLabelValues(operation).Inc()
}

// TrackDecisions counts n participation requests reaching the given outcome.
func TrackDecisions(decision string, n int) {
	if n > 0 {
		requestDecisions.WithLabelValues(decision).Add(float64(n))
	}
}
