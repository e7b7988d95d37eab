// Package observability registers the process's prometheus metrics.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	agentRunTotal      *prometheus.CounterVec
	agentRunDuration   *prometheus.HistogramVec
	agentRunIterations prometheus.Histogram
	agentRepliesTotal  *prometheus.CounterVec

	httpRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "haven_tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "haven_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			agentRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "haven_agent_run_total",
					Help: "Total agent runs by provider and outcome.",
				},
				[]string{"provider", "outcome"},
			),
			agentRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "haven_agent_run_duration_seconds",
					Help:    "Agent run duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			agentRunIterations: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "haven_agent_run_iterations",
					Help:    "Model round trips per agent run.",
					Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
				},
			),
			agentRepliesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "haven_agent_replies_total",
					Help: "Final replies by kind (text, card, repaired).",
				},
				[]string{"kind"},
			),
			httpRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "haven_http_requests_total",
					Help: "Gateway requests by route and result.",
				},
				[]string{"route", "result"},
			),
		}

		prometheus.MustRegister(
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.agentRunTotal,
			m.agentRunDuration,
			m.agentRunIterations,
			m.agentRepliesTotal,
			m.httpRequestsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordAgentRun records one finished run. outcome is "success" or the
// error kind that ended it.
func RecordAgentRun(provider string, duration time.Duration, iterations int, outcome string) {
	m := getMetrics()
	m.agentRunTotal.WithLabelValues(provider, outcome).Inc()
	m.agentRunDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.agentRunIterations.Observe(float64(iterations))
}

func RecordReply(kind string) {
	getMetrics().agentRepliesTotal.WithLabelValues(kind).Inc()
}

func RecordHTTPRequest(route, result string) {
	getMetrics().httpRequestsTotal.WithLabelValues(route, result).Inc()
}
