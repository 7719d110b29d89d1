package encryption

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Operations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sanctum_crypto_operations_total",
			Help: "Encrypt and decrypt operations by algorithm and outcome",
		}, []string{"operation", "algorithm", "outcome"}),
	}
}

func (m *Metrics) incOperation(op string, alg Algorithm, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, string(alg), outcome).Inc()
}
