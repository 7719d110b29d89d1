package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	AppendFailures prometheus.Counter
	AlertsSent     prometheus.Counter
	AlertsFailed   prometheus.Counter
	AlertsDropped  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_audit_events_recorded_total",
			Help: "Audit events appended, by category and severity",
		}, []string{"category", "severity"}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_audit_append_failures_total",
			Help: "Audit events that could not be appended to the store",
		}),
		AlertsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_audit_alerts_sent_total",
			Help: "Critical events delivered to the alert sink",
		}),
		AlertsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_audit_alerts_failed_total",
			Help: "Critical events the alert sink rejected, timed out or skipped",
		}),
		AlertsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctum_audit_alerts_dropped_total",
			Help: "Pending alerts dropped because the alert buffer was full",
		}),
	}
}

func (m *Metrics) incRecorded(category EventCategory, severity Severity) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(string(category), string(severity)).Inc()
}

func (m *Metrics) incAppendFailure() {
	if m == nil {
		return
	}
	m.AppendFailures.Inc()
}

func (m *Metrics) incAlertSent() {
	if m == nil {
		return
	}
	m.AlertsSent.Inc()
}

func (m *Metrics) incAlertFailed() {
	if m == nil {
		return
	}
	m.AlertsFailed.Inc()
}

func (m *Metrics) incAlertDropped() {
	if m == nil {
		return
	}
	m.AlertsDropped.Inc()
}
