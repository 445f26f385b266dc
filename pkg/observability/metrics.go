package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by engine events.
type Metrics struct {
	registry       *prometheus.Registry
	nodeExecutions *prometheus.CounterVec
	runs           *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	toolErrors     *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_node_executions_total",
				Help: "Total number of node executions",
			},
			[]string{"node"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_runs_total",
				Help: "Total number of finished runs by status",
			},
			[]string{"status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepgraph_tool_duration_seconds",
				Help:    "Duration of tool executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		toolErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_tool_errors_total",
				Help: "Total number of tool executions that returned an error",
			},
			[]string{"tool"},
		),
	}
	m.registry.MustRegister(m.nodeExecutions, m.runs, m.toolDuration, m.toolErrors)
	return m
}

// Registry exposes the underlying registry, e.g. to add process collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeExecutions.WithLabelValues(e.NodeID).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.toolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
			if e.IsError {
				m.toolErrors.WithLabelValues(e.ToolName).Inc()
			}
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Status)).Inc()
		},
	}
}
