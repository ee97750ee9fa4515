package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors on a private registry so
// tests can create gateways without global collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	// dispatches counts tool dispatches by tool and outcome. The outcome is
	// "ok", the failure kind reported by the tool, or "dispatch_error" when
	// dispatch itself failed.
	dispatches *prometheus.CounterVec

	// latency measures tool execution time by tool.
	latency *prometheus.HistogramVec

	// chatMessages counts processed chat messages.
	chatMessages prometheus.Counter
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "perch",
			Subsystem: "gateway",
			Name:      "tool_dispatches_total",
			Help:      "Tool dispatches by tool name and outcome",
		}, []string{"tool", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "perch",
			Subsystem: "gateway",
			Name:      "tool_latency_seconds",
			Help:      "Tool execution latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300},
		}, []string{"tool"}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "perch",
			Subsystem: "gateway",
			Name:      "chat_messages_total",
			Help:      "Chat messages processed",
		}),
	}

	reg.MustRegister(m.dispatches, m.latency, m.chatMessages)
	return m
}

// RecordDispatch records one tool dispatch.
func (m *Metrics) RecordDispatch(toolName, outcome string, elapsed time.Duration) {
	m.dispatches.WithLabelValues(toolName, outcome).Inc()
	m.latency.WithLabelValues(toolName).Observe(elapsed.Seconds())
}

// RecordChatMessage records one processed chat message.
func (m *Metrics) RecordChatMessage() {
	m.chatMessages.Inc()
}
