package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "stock"

// Metrics groups the service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	LedgerMutations *prometheus.CounterVec
	Reservations    *prometheus.CounterVec
	Recalculations  *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LedgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_mutations_total",
			Help:      "Guarded ledger updates by operation and result.",
		}, []string{"op", "result"}),
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_outcomes_total",
			Help:      "Unit reservation messages by operation and outcome.",
		}, []string{"op", "outcome"}),
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Catalog quantity recalculations by result.",
		}, []string{"result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Stock event transitions by target status and result.",
		}, []string{"status", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.LedgerMutations, m.Reservations, m.Recalculations, m.Transitions)
	}
	return m
}

func (m *Metrics) LedgerMutation(op, result string) {
	if m == nil {
		return
	}
	m.LedgerMutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Reservation(op, outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Recalculation(result string) {
	if m == nil {
		return
	}
	m.Recalculations.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(status, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status, result).Inc()
}
