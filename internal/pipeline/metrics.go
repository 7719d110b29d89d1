package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Requests      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_pipeline_requests_total",
			Help: "Requests leaving the pipeline by outcome and the stage they left at",
		}, []string{"outcome", "stage"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sanctum_pipeline_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"stage"}),
	}
}

func (m *Metrics) incRequest(outcome, stage string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome, stage).Inc()
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
