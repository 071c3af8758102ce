// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CoordinatorRuns counts coordinated units by outcome.
	CoordinatorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_coordinator_runs_total",
		Help: "Total number of coordinated units of work by outcome",
	}, []string{"outcome"})

	// PartialCommits counts units whose graph commit failed after the relational commit.
	PartialCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geosm_partial_commits_total",
		Help: "Total number of relational commits not followed by a graph commit",
	})

	// CoordinatorDuration records how long a unit of work takes, commit included.
	CoordinatorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geosm_coordinator_duration_seconds",
		Help:    "Coordinated unit of work latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"needs"})

	// VotesTotal counts applied vote operations.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_votes_total",
		Help: "Total number of vote operations applied",
	}, []string{"op"})

	// SweepEvents counts expired events processed by the sweep.
	SweepEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_sweep_events_total",
		Help: "Total number of expired events processed by the sweep",
	}, []string{"type", "outcome"})

	// ReportsClaimed counts reports locked by moderators.
	ReportsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_reports_claimed_total",
		Help: "Total number of reports claimed from the moderation queue",
	}, []string{"type"})

	// SearchHits counts returned search hits by kind and tier.
	SearchHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_search_hits_total",
		Help: "Total number of search hits by kind and tier",
	}, []string{"kind", "tier"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_cache_lookups_total",
		Help: "Total number of cache-aside lookups by key and result",
	}, []string{"key", "result"})

	// NotificationsTotal counts outgoing notifications by channel and outcome.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geosm_notifications_total",
		Help: "Total number of email and SMS notifications by outcome",
	}, []string{"channel", "outcome"})
)

// TrackUnit returns a function that records unit latency when called (e.g. defer).
func TrackUnit(needs string) func() {
	start := time.Now()
	return func() {
		CoordinatorDuration.WithLabelValues(needs).Observe(time.Since(start).Seconds())
	}
}
