// Package metrics exposes Prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	postsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadharvest_posts_total",
			Help: "Posts handled by the pipeline, labeled by disposition and reason.",
		},
		[]string{"disposition", "reason"},
	)

	unitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadharvest_units_total",
			Help: "Work units executed, labeled by status.",
		},
		[]string{"status"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadharvest_runs_total",
			Help: "Scheduler ticks, labeled by status.",
		},
		[]string{"status"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadharvest_run_duration_seconds",
			Help:    "Wall time of a full scheduler tick.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadharvest_retries_total",
			Help: "Retry attempts, labeled by reason.",
		},
		[]string{"reason"},
	)

	activeCandidates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadharvest_active_candidates",
			Help: "Candidates with a browser session currently executing units.",
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePost counts one post disposition. reason may be empty for
// successful extractions.
func ObservePost(disposition, reason string) {
	postsTotal.WithLabelValues(disposition, reason).Inc()
}

// ObserveUnit counts one finished work unit.
func ObserveUnit(status string) {
	unitsTotal.WithLabelValues(status).Inc()
}

// ObserveRun counts one scheduler tick outcome and its duration.
func ObserveRun(status string, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveRetry counts one retry attempt.
func ObserveRetry(reason string) {
	retriesTotal.WithLabelValues(reason).Inc()
}

// IncActiveCandidates increments the active candidate gauge.
func IncActiveCandidates() {
	activeCandidates.Inc()
}

// DecActiveCandidates decrements the active candidate gauge.
func DecActiveCandidates() {
	activeCandidates.Dec()
}
