// Package metrics exposes Prometheus collectors for the reply pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Branches a reply can be produced by.
const (
	BranchArithmetic = "arithmetic"
	BranchSearch     = "search"
	BranchPool       = "pool"
	BranchFailure    = "failure"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	replies             *prometheus.CounterVec
	evaluationFailures  prometheus.Counter
	persistenceFailures *prometheus.CounterVec
	latency             *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydrogpt",
			Name:      "replies_total",
			Help:      "Replies generated, by intent and branch.",
		}, []string{"intent", "branch"}),
		evaluationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydrogpt",
			Name:      "evaluation_failures_total",
			Help:      "Arithmetic expressions that could not be evaluated.",
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydrogpt",
			Name:      "persistence_failures_total",
			Help:      "Failed reads or writes against the store, by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hydrogpt",
			Name:      "reply_duration_seconds",
			Help:      "Time spent producing a reply.",
			Buckets:   []float64{.001, .01, .1, .5, 1, 2, 3, 5},
		}, []string{"branch"}),
	}
	if reg != nil {
		reg.MustRegister(m.replies, m.evaluationFailures, m.persistenceFailures, m.latency)
	}
	return m
}

func (m *Metrics) ObserveReply(intent, branch string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(intent, branch).Inc()
	m.latency.WithLabelValues(branch).Observe(elapsed.Seconds())
}

func (m *Metrics) EvaluationFailed() {
	if m == nil {
		return
	}
	m.evaluationFailures.Inc()
}

func (m *Metrics) PersistenceFailed(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}
