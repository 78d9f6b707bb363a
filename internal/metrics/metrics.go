// Package metrics exposes the Prometheus collectors the agent runner and
// orchestrator record against: LLM request latency and outcome, tool
// execution latency and outcome, and the file cache's hit rate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the runner touches during a task.
type Metrics struct {
	// LLMRequestDuration measures provider completion latency in seconds.
	// Labels: provider, model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts provider completions by outcome.
	// Labels: provider, model, status (success|error).
	LLMRequestCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool dispatch latency in seconds.
	// Labels: tool.
	ToolExecutionDuration *prometheus.HistogramVec

	// ToolExecutionCounter counts tool dispatches by outcome.
	// Labels: tool, status (success|error).
	ToolExecutionCounter *prometheus.CounterVec

	// CacheHitRate reports the file cache's overall hit rate at the time it
	// was last sampled (0.0-1.0). Updated by runner.Runner after every turn.
	CacheHitRate prometheus.Gauge
}

// New registers every collector against reg and returns the bundle. Passing
// a fresh prometheus.NewRegistry() keeps test runs isolated from the global
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LLMRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vtcode",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Provider completion latency in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),
		LLMRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtcode",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Provider completions by outcome.",
		}, []string{"provider", "model", "status"}),
		ToolExecutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vtcode",
			Subsystem: "tool",
			Name:      "execution_duration_seconds",
			Help:      "Tool dispatch latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vtcode",
			Subsystem: "tool",
			Name:      "executions_total",
			Help:      "Tool dispatches by outcome.",
		}, []string{"tool", "status"}),
		CacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vtcode",
			Subsystem: "cache",
			Name:      "hit_rate",
			Help:      "File cache overall hit rate, sampled once per turn.",
		}),
	}
}
