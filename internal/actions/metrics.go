package actions

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts dispatched actions and rules engine changes.
type Metrics struct {
	Dispatched  *prometheus.CounterVec
	RuleChanges *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "actions_total",
			Help:      "Dispatched actions by id and result.",
		}, []string{"action", "result"}),
		RuleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "rule_changes_total",
			Help:      "Changes produced by the rules engine, by pass.",
		}, []string{"pass"}),
	}
	if reg != nil {
		reg.MustRegister(m.Dispatched, m.RuleChanges)
	}
	return m
}

func (m *Metrics) observe(action, result string) {
	if m == nil {
		return
	}
	m.Dispatched.WithLabelValues(action, result).Inc()
}

func (m *Metrics) observeRules(byPass map[string]int) {
	if m == nil {
		return
	}
	for pass, n := range byPass {
		m.RuleChanges.WithLabelValues(pass).Add(float64(n))
	}
}
