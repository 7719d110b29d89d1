package dlp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Scans     prometheus.Counter
	Findings  *prometheus.CounterVec
	RiskLevel prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scans: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_dlp_scans_total",
			Help: "Payloads scanned",
		}),
		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_dlp_findings_total",
			Help: "Findings by type",
		}, []string{"type"}),
		RiskLevel: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctum_dlp_risk_level",
			Help:    "Distribution of scan risk levels",
			Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
		}),
	}
}

func (m *Metrics) observe(r *Result) {
	if m == nil {
		return
	}
	m.Scans.Inc()
	for _, f := range r.Findings {
		m.Findings.WithLabelValues(string(f.Type)).Inc()
	}
	m.RiskLevel.Observe(r.RiskLevel)
}
