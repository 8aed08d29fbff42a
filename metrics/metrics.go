// Package metrics exposes Prometheus collectors for the research pipeline:
// graph node visits, supervisor rounds, researcher activity, tool calls and
// model calls.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/researchmesh/agent"
	"github.com/hupe1980/researchmesh/graph"
)

const namespace = "researchmesh"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors. Create one per registry.
type Metrics struct {
	NodeVisits         *prometheus.CounterVec
	NodeErrors         *prometheus.CounterVec
	NodeDuration       *prometheus.HistogramVec
	SupervisorRounds   prometheus.Counter
	ActiveResearchers  prometheus.Gauge
	ResearcherDuration *prometheus.HistogramVec
	ToolCalls          *prometheus.CounterVec
	ToolDuration       *prometheus.HistogramVec
	ModelCalls         *prometheus.CounterVec
	ModelDuration      *prometheus.HistogramVec
	ModelTokens        *prometheus.CounterVec
}

var _ agent.Observer = (*Metrics)(nil)

// New registers the collectors with reg. A nil reg registers with
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)

	return &Metrics{
		NodeVisits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_node_visits_total",
			Help:      "Total number of graph node executions",
		}, []string{"graph", "node"}),
		NodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_node_errors_total",
			Help:      "Total number of failed graph node executions",
		}, []string{"graph", "node"}),
		NodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_node_duration_seconds",
			Help:      "Duration of graph node executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"graph", "node"}),
		SupervisorRounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_rounds_total",
			Help:      "Total number of supervisor decision rounds",
		}),
		ActiveResearchers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "researchers_active",
			Help:      "Number of researchers currently running",
		}),
		ResearcherDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "researcher_duration_seconds",
			Help:      "Duration of researcher runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		ToolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		}, []string{"tool", "status"}),
		ToolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		ModelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of model calls",
		}, []string{"model", "status"}),
		ModelDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of model calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		ModelTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens consumed by model calls",
		}, []string{"model", "kind"}),
	}
}

// Handler serves the metrics of g in the Prometheus text format. A nil g
// serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}

	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Callbacks returns graph callbacks that count node visits, failures and
// durations.
func (m *Metrics) Callbacks() []graph.Callback {
	return []graph.Callback{
		graph.NewFunctionCallback(graph.CallbackAfterNode, func(_ context.Context, cc *graph.CallbackContext) error {
			m.NodeVisits.WithLabelValues(cc.Graph, cc.Node).Inc()
			m.NodeDuration.WithLabelValues(cc.Graph, cc.Node).Observe(cc.Duration.Seconds())

			return nil
		}),
		graph.NewFunctionCallback(graph.CallbackOnError, func(_ context.Context, cc *graph.CallbackContext) error {
			m.NodeVisits.WithLabelValues(cc.Graph, cc.Node).Inc()
			m.NodeErrors.WithLabelValues(cc.Graph, cc.Node).Inc()
			m.NodeDuration.WithLabelValues(cc.Graph, cc.Node).Observe(cc.Duration.Seconds())

			return nil
		}),
	}
}

// SupervisorRound implements agent.Observer.
func (m *Metrics) SupervisorRound(int) { m.SupervisorRounds.Inc() }

// ResearcherStarted implements agent.Observer.
func (m *Metrics) ResearcherStarted() { m.ActiveResearchers.Inc() }

// ResearcherFinished implements agent.Observer.
func (m *Metrics) ResearcherFinished(d time.Duration, err error) {
	m.ActiveResearchers.Dec()
	m.ResearcherDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

// ToolCalled implements agent.Observer.
func (m *Metrics) ToolCalled(toolName string, d time.Duration, err error) {
	m.ToolCalls.WithLabelValues(toolName, status(err)).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return StatusError
	}

	return StatusOK
}
