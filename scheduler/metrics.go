package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what the scheduler writes. A nil *Metrics records nothing.
type Metrics struct {
	occurrencesCreated *prometheus.CounterVec
	duplicatesSkipped  *prometheus.CounterVec
	unitFallbacks      prometheus.Counter
	reschedules        prometheus.Counter
}

// NewMetrics creates the scheduler collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		occurrencesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petcal",
			Name:      "occurrences_created_total",
			Help:      "Occurrences written to the store.",
		}, []string{"kind"}),
		duplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "petcal",
			Name:      "duplicate_occurrences_total",
			Help:      "Occurrences rejected by the store because their identity key was already taken.",
		}, []string{"kind"}),
		unitFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petcal",
			Name:      "reschedule_unit_fallbacks_total",
			Help:      "Due-date projections that fell back to the annual interval.",
		}),
		reschedules: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "petcal",
			Name:      "vaccination_reschedules_total",
			Help:      "Reschedules appended to vaccination histories.",
		}),
	}
	reg.MustRegister(m.occurrencesCreated, m.duplicatesSkipped, m.unitFallbacks, m.reschedules)
	return m
}

func (m *Metrics) created(kind string) {
	if m != nil {
		m.occurrencesCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) duplicate(kind string) {
	if m != nil {
		m.duplicatesSkipped.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) fallback() {
	if m != nil {
		m.unitFallbacks.Inc()
	}
}

func (m *Metrics) rescheduled() {
	if m != nil {
		m.reschedules.Inc()
	}
}
