package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_sync_runs_total",
		Help: "Synchronization runs by final status.",
	}, []string{"status"})

	newGrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_sync_new_grades_total",
		Help: "Grades inserted by synchronization runs.",
	})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_sync_run_duration_seconds",
		Help:    "Wall-clock duration of one synchronization run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	portalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_portal_requests_total",
		Help: "Requests issued against the journal portal.",
	}, []string{"endpoint", "outcome"})
)

func SyncRun(status string, durationSeconds float64, inserted int) {
	syncRuns.WithLabelValues(status).Inc()
	syncDuration.Observe(durationSeconds)
	if inserted > 0 {
		newGrades.Add(float64(inserted))
	}
}

func PortalRequest(endpoint string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	portalRequests.WithLabelValues(endpoint, outcome).Inc()
}
