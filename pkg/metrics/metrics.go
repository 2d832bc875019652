package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthMetrics records registration, login and gate decisions.
// A nil *AuthMetrics is valid and records nothing.
type AuthMetrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	gate          *prometheus.CounterVec
	loginLatency  prometheus.Histogram
}

// NewAuthMetrics creates the collectors and registers them on reg.
func NewAuthMetrics(namespace string, reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_gate_decisions_total",
			Help:      "Authentication gate decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "login_duration_seconds",
			Help:      "Time spent in Login including password verification.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.registrations, m.logins, m.gate, m.loginLatency)
	return m
}

func (m *AuthMetrics) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) RecordLogin(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
	m.loginLatency.Observe(took.Seconds())
}

// RecordGate counts a gate decision. reason is empty for admitted requests.
func (m *AuthMetrics) RecordGate(outcome, reason string) {
	if m == nil {
		return
	}
	m.gate.WithLabelValues(outcome, reason).Inc()
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
