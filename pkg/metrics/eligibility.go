package metrics

import "github.com/prometheus/client_golang/prometheus"

// EligibilityMetrics tracks eligibility resolution health.
type EligibilityMetrics struct {
	degraded prometheus.Counter
}

// NewEligibilityMetrics registers the eligibility metrics on the provided
// registerer.
func NewEligibilityMetrics(reg prometheus.Registerer) *EligibilityMetrics {
	if reg == nil {
		return &EligibilityMetrics{}
	}
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eligibility_degraded_matches_total",
		Help: "Eligibility passes that fell back to raw province/city matching.",
	})
	reg.MustRegister(degraded)
	return &EligibilityMetrics{degraded: degraded}
}

// IncDegraded counts one degraded (fallback) eligibility pass.
func (m *EligibilityMetrics) IncDegraded() {
	if m == nil || m.degraded == nil {
		return
	}
	m.degraded.Inc()
}
