package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Created     prometheus.Counter
	Evicted     prometheus.Counter
	Swept       prometheus.Counter
	Validations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_sessions_created_total",
			Help: "Sessions created",
		}),
		Evicted: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_sessions_evicted_total",
			Help: "Sessions evicted by the concurrent session cap",
		}),
		Swept: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_sessions_swept_total",
			Help: "Idle sessions removed by the background sweeper",
		}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_session_validations_total",
			Help: "Session validations by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) incCreated() {
	if m == nil {
		return
	}
	m.Created.Inc()
}

func (m *Metrics) incEvicted() {
	if m == nil {
		return
	}
	m.Evicted.Inc()
}

func (m *Metrics) addSwept(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Swept.Add(float64(n))
}

func (m *Metrics) incValidation(r *ValidationResult) {
	if m == nil {
		return
	}
	outcome := r.Reason
	switch {
	case r.Valid && r.RequiresReauth:
		outcome = "reauth_required"
	case r.Valid:
		outcome = "valid"
	}
	m.Validations.WithLabelValues(outcome).Inc()
}
