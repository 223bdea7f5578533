package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "branchpos"

// PricingMetrics tracks engine failures surfaced to callers and the life of
// checkout sessions.
type PricingMetrics struct {
	errors    *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	recompute *prometheus.HistogramVec
}

func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_errors_total",
		Help:      "Pricing and conversion failures by error kind.",
	}, []string{"kind"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_outcomes_total",
		Help:      "Sessions reaching a terminal state.",
	}, []string{"kind", "outcome"})
	recompute := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_recompute_seconds",
		Help:      "Time spent applying one session mutation including repricing.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"kind"})
	reg.MustRegister(errs, outcomes, recompute)
	return &PricingMetrics{errors: errs, outcomes: outcomes, recompute: recompute}
}

// IncError counts one failure of the given kind (an error code).
func (m *PricingMetrics) IncError(kind string) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncOutcome counts a session reaching checked_out, abandoned or expired.
func (m *PricingMetrics) IncOutcome(kind, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *PricingMetrics) ObserveRecompute(kind string, took time.Duration) {
	if m == nil || m.recompute == nil {
		return
	}
	m.recompute.WithLabelValues(normalizeLabel(kind)).Observe(took.Seconds())
}
