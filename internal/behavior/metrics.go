package behavior

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Assessments     *prometheus.CounterVec
	Anomalies       *prometheus.CounterVec
	RiskLevel       prometheus.Histogram
	ProfilesEvicted prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Assessments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_behavior_assessments_total",
			Help: "Risk assessments by recommended action",
		}, []string{"recommended_action"}),
		Anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_behavior_anomalies_total",
			Help: "Anomalies tagged by type",
		}, []string{"anomaly"}),
		RiskLevel: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctum_behavior_risk_level",
			Help:    "Distribution of behavioral risk levels",
			Buckets: []float64{0, 0.2, 0.3, 0.5, 0.7, 0.8, 1},
		}),
		ProfilesEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_behavior_profiles_evicted_total",
			Help: "Idle profiles removed by the sweeper",
		}),
	}
}

func (m *Metrics) observe(r *RiskAssessment) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(string(r.RecommendedAction)).Inc()
	for _, a := range r.Anomalies {
		m.Anomalies.WithLabelValues(string(a)).Inc()
	}
	m.RiskLevel.Observe(r.RiskLevel)
}

func (m *Metrics) addEvicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ProfilesEvicted.Add(float64(n))
}
