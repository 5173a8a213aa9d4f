// Package metrics exposes Prometheus collectors for the payment engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the engine and the scheduler.
const (
	OutcomeSuccess    = "success"
	OutcomeDeclined   = "declined"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeDropped    = "dropped"
	OutcomeCompliance = "compliance"
	OutcomeOpened     = "opened"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	payments      *prometheus.CounterVec
	payouts       *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepItems    *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "susu_payments_total",
			Help: "Contribution debit attempts by outcome.",
		}, []string{"outcome"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "susu_payouts_total",
			Help: "Payout credit attempts by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "susu_sweep_duration_seconds",
			Help:    "Duration of scheduler sweeps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "susu_sweep_items_total",
			Help: "Items processed by scheduler sweeps by outcome.",
		}, []string{"sweep", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "susu_notifications_total",
			Help: "Outbound notifications by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.payments, m.payouts, m.sweepDuration, m.sweepItems, m.notifications)
	return m
}

// Payment counts a debit attempt.
func (m *Metrics) Payment(outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(outcome).Inc()
}

// Payout counts a credit attempt.
func (m *Metrics) Payout(outcome string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(outcome).Inc()
}

// ObserveSweep records how long a sweep took.
func (m *Metrics) ObserveSweep(sweep string, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

// SweepItem counts one item handled by a sweep.
func (m *Metrics) SweepItem(sweep, outcome string) {
	if m == nil {
		return
	}
	m.sweepItems.WithLabelValues(sweep, outcome).Inc()
}

// Notification counts an outbound notification.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
