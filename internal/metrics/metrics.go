// Package metrics holds the Prometheus collectors of the ticketing core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics records nothing.
type Metrics struct {
	Registrations *prometheus.CounterVec
	CheckIns      *prometheus.CounterVec
	StatusChanges *prometheus.CounterVec
	LedgerAdjusts *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_checkins_total",
			Help: "Check-in attempts by outcome",
		}, []string{"outcome"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_status_changes_total",
			Help: "Ticket status changes and deletions by outcome",
		}, []string{"outcome"}),
		LedgerAdjusts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ticketing_ledger_adjustments_total",
			Help: "Committed registered-count adjustments by direction",
		}, []string{"direction"}),
	}
}

func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CheckIn(outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusChange(outcome string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(outcome).Inc()
}

// Ledger records a committed adjustment of delta (+1 or -1).
func (m *Metrics) Ledger(delta int) {
	if m == nil {
		return
	}
	switch {
	case delta > 0:
		m.LedgerAdjusts.WithLabelValues("increment").Add(float64(delta))
	case delta < 0:
		m.LedgerAdjusts.WithLabelValues("decrement").Add(float64(-delta))
	}
}
