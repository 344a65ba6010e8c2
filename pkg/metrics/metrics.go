// Package metrics holds the Prometheus collectors of the gateway.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modelgate"

// Request modes.
const (
	ModeSync   = "sync"
	ModeStream = "stream"
)

// Request outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the gateway collectors.
type Metrics struct {
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StreamEvents     *prometheus.CounterVec
	StatusSweeps     *prometheus.CounterVec
	PromptTokens     *prometheus.CounterVec
	CompletionTokens *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of dispatched model requests",
			},
			[]string{"provider", "model", "mode", "outcome"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Model request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "mode"},
		),
		StreamEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_events_total",
				Help:      "Total stream events delivered to callers",
			},
			[]string{"provider"},
		),
		StatusSweeps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_sweeps_total",
				Help:      "Total provider status sweeps",
			},
			[]string{"provider"},
		),
		PromptTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_prompt_total",
				Help:      "Total prompt tokens consumed",
			},
			[]string{"provider", "model"},
		),
		CompletionTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_completion_total",
				Help:      "Total completion tokens generated",
			},
			[]string{"provider", "model"},
		),
	}
}

// RecordRequest records one finished request.
func (m *Metrics) RecordRequest(provider, model, mode string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	m.Requests.WithLabelValues(provider, model, mode, outcome).Inc()
	m.RequestDuration.WithLabelValues(provider, mode).Observe(elapsed.Seconds())
}

// RecordTokens records the token usage of a request.
func (m *Metrics) RecordTokens(provider, model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.PromptTokens.WithLabelValues(provider, model).Add(float64(prompt))
	m.CompletionTokens.WithLabelValues(provider, model).Add(float64(completion))
}

// StreamEvent counts one delivered stream event.
func (m *Metrics) StreamEvent(provider string) {
	if m == nil {
		return
	}
	m.StreamEvents.WithLabelValues(provider).Inc()
}

// StatusSweep counts one provider sweep.
func (m *Metrics) StatusSweep(provider string) {
	if m == nil {
		return
	}
	m.StatusSweeps.WithLabelValues(provider).Inc()
}
