// Package metrics provides Prometheus metrics for the fault pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	faults     *prometheus.CounterVec
	aiRequests *prometheus.CounterVec
	aiDuration *prometheus.HistogramVec
	renders    *prometheus.CounterVec
	redactions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is not nil
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errexplain_faults_total",
				Help: "Total number of captured faults by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		aiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errexplain_ai_requests_total",
				Help: "Total number of AI backend calls by outcome",
			},
			[]string{"backend", "outcome"},
		),
		aiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "errexplain_ai_request_duration_seconds",
				Help:    "Latency of AI backend calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"backend"},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errexplain_renders_total",
				Help: "Total number of rendered explanations by format",
			},
			[]string{"format"},
		),
		redactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errexplain_redactions_total",
				Help: "Total number of redacted spans by sanitizer rule",
			},
			[]string{"rule"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.faults, m.aiRequests, m.aiDuration, m.renders, m.redactions)
	}
	return m
}

// RecordFault counts one captured fault
func (m *Metrics) RecordFault(kind, outcome string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind, outcome).Inc()
}

// RecordAIRequest counts one backend call and observes its latency
func (m *Metrics) RecordAIRequest(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(backend, outcome).Inc()
	m.aiDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordAISkipped counts a call that never reached the backend
func (m *Metrics) RecordAISkipped(backend, outcome string) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(backend, outcome).Inc()
}

// RecordRender counts one rendered explanation
func (m *Metrics) RecordRender(format string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(format).Inc()
}

// RecordRedactions counts redacted spans for a sanitizer rule
func (m *Metrics) RecordRedactions(rule string, count int) {
	if m == nil {
		return
	}
	m.redactions.WithLabelValues(rule).Add(float64(count))
}
