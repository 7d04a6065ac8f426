// Package metrics exports Prometheus metrics for the tutoring service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter owns the service's Prometheus registry and instruments.
type Exporter struct {
	registry *prometheus.Registry

	chatTurns    *prometheus.CounterVec
	chatLatency  *prometheus.HistogramVec
	llmLatency   *prometheus.HistogramVec
	gateBlocks   *prometheus.CounterVec
	authAttempts *prometheus.CounterVec
	activeChats  prometheus.Gauge
}

// Config configures the exporter.
type Config struct {
	// Registry to use; a fresh one is created when nil.
	Registry *prometheus.Registry

	// Buckets for latency histograms, in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates an exporter with all instruments registered.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vedyx",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total number of completed chat turns",
		},
		[]string{"identity", "status"},
	)

	e.chatLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vedyx",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end chat turn latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"identity"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vedyx",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "LLM completion request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)

	e.gateBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vedyx",
			Subsystem: "gate",
			Name:      "events_total",
			Help:      "Guest gate escalation events",
		},
		[]string{"event"},
	)

	e.authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vedyx",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication attempts",
		},
		[]string{"method", "status"},
	)

	e.activeChats = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vedyx",
			Subsystem: "chat",
			Name:      "active_sessions",
			Help:      "Number of live in-memory sessions",
		},
	)

	registry.MustRegister(
		e.chatTurns,
		e.chatLatency,
		e.llmLatency,
		e.gateBlocks,
		e.authAttempts,
		e.activeChats,
	)

	return e
}

// RecordChatTurn records one completed chat turn.
func (e *Exporter) RecordChatTurn(authenticated bool, latency time.Duration, success bool) {
	identity := "guest"
	if authenticated {
		identity = "user"
	}
	status := "success"
	if !success {
		status = "error"
	}
	e.chatTurns.WithLabelValues(identity, status).Inc()
	e.chatLatency.WithLabelValues(identity).Observe(latency.Seconds())
}

// RecordLLMRequest records one completion request's latency.
func (e *Exporter) RecordLLMRequest(model, provider string, latency time.Duration) {
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
}

// RecordGateEvent records a guest gate escalation.
func (e *Exporter) RecordGateEvent(event string) {
	if event == "" {
		return
	}
	e.gateBlocks.WithLabelValues(event).Inc()
}

// RecordAuthAttempt records an authentication attempt by method.
func (e *Exporter) RecordAuthAttempt(method string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.authAttempts.WithLabelValues(method, status).Inc()
}

// SetActiveSessions sets the live session gauge.
func (e *Exporter) SetActiveSessions(n int) {
	e.activeChats.Set(float64(n))
}

// HTTPHandler returns the scrape handler for this registry.
func (e *Exporter) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
