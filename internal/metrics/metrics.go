package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Poll result labels.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
	ResultFallback  = "fallback"
)

// Metrics groups the dashboard's collectors.
type Metrics struct {
	Polls           *prometheus.CounterVec
	SnapshotEvents  prometheus.Gauge
	SnapshotAge     prometheus.Gauge
	SkippedEvents   prometheus.Counter
	ForumOperations *prometheus.CounterVec
}

// New registers collectors on reg. A nil reg creates a private registry,
// which keeps tests independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presensi",
			Name:      "feed_polls_total",
			Help:      "Snapshot fetches by result.",
		}, []string{"result"}),
		SnapshotEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "presensi",
			Name:      "snapshot_events",
			Help:      "Events in the current snapshot.",
		}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "presensi",
			Name:      "snapshot_updated_timestamp_seconds",
			Help:      "Unix time the current snapshot was taken.",
		}),
		SkippedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "presensi",
			Name:      "skipped_events_total",
			Help:      "Snapshot elements skipped as malformed.",
		}),
		ForumOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presensi",
			Name:      "forum_operations_total",
			Help:      "Forum writes by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.Polls, m.SnapshotEvents, m.SnapshotAge, m.SkippedEvents, m.ForumOperations)
	return m
}
