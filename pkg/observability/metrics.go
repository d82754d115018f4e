package observability

import (
	"context"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "stepgraph"

// Metrics holds the Prometheus collectors updated by the engine hooks.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	NodeVisits   *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	RunSteps     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by status",
			},
			[]string{"status"},
		),
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits",
			},
			[]string{"node_id"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "tool_duration_seconds",
				Help:      "Duration of tool executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		RunSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "run_steps",
				Help:      "Number of nodes entered per run",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RunsTotal, m.NodeVisits, m.ToolDuration, m.RunSteps)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.RunsTotal.WithLabelValues(string(e.Status)).Inc()
			m.RunSteps.Observe(float64(e.Steps))
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}
