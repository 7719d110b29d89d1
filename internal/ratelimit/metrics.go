package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_ratelimit_decisions_total",
			Help: "Per-principal rate limit decisions",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "limited"
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}
