package coach

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the coach does. Register it once per registry.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	RejectedEvents       *prometheus.CounterVec
	AdaptationProposals  *prometheus.CounterVec
	ContentInconsistency prometheus.Counter
	StoreFailures        *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const namespace, subsystem = "petracoach", "coach"

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Accepted state machine transitions by source and target screen.",
		}, []string{"from", "to"}),
		RejectedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_events_total",
			Help:      "Events not accepted on the current screen.",
		}, []string{"screen", "event"}),
		AdaptationProposals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "adaptation_proposals_total",
			Help:      "Adaptation proposals merged into user adaptations by rule.",
		}, []string{"rule"}),
		ContentInconsistency: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "content_inconsistencies_total",
			Help:      "Program content references that could not be resolved.",
		}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_failures_total",
			Help:      "Failed progression store operations.",
		}, []string{"operation"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Sessions held in memory.",
		}),
	}
}
