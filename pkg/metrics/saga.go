package metrics

import "github.com/prometheus/client_golang/prometheus"

// SagaMetrics counts compensating actions taken when a cross-store write
// sequence fails partway. A rising failed counter means a restock or
// re-deduction could not be applied and the ledger may need manual repair.
type SagaMetrics struct {
	compensations *prometheus.CounterVec
}

// NewSagaMetrics registers the saga metrics on the provided registerer.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	if reg == nil {
		return &SagaMetrics{}
	}
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_compensations_total",
		Help: "Compensating actions taken after partial cross-store writes.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(compensations)
	return &SagaMetrics{compensations: compensations}
}

// IncCompensation records a compensating action and whether it applied cleanly.
func (s *SagaMetrics) IncCompensation(operation string, applied bool) {
	if s == nil || s.compensations == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "failed"
	}
	s.compensations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}
