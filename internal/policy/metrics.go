package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Reloads   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_policy_decisions_total",
			Help: "Authorization decisions by outcome and denial reason",
		}, []string{"outcome", "reason"}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_policy_reloads_total",
			Help: "Policy file reload attempts",
		}, []string{"result"}),
	}
}

func (m *Metrics) incDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) incReload(result string) {
	if m == nil {
		return
	}
	m.Reloads.WithLabelValues(result).Inc()
}
