// Package metrics defines the Prometheus instrumentation exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pipewatch"

var (
	// RuleEvaluations counts rule evaluations by rule type
	RuleEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_evaluations_total",
		Help:      "Total number of alert rule evaluations.",
	}, []string{"rule_type"})

	// AlertsFired counts alerts created by rule type and severity
	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Total number of alerts fired.",
	}, []string{"rule_type", "severity"})

	// AlertsSuppressed counts evaluations that matched but were inside the cooldown window
	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_suppressed_total",
		Help:      "Total number of matching evaluations suppressed by cooldown.",
	}, []string{"rule_type"})

	// AlertTransitions counts lifecycle transitions by action
	AlertTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_transitions_total",
		Help:      "Total number of alert lifecycle transitions.",
	}, []string{"action"})

	// HealthChecksRun counts health check executions by type and resulting status
	HealthChecksRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "health_checks_run_total",
		Help:      "Total number of health check executions.",
	}, []string{"check_type", "status"})

	// PipelineRunsRecorded counts pipeline run records by final status
	PipelineRunsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_recorded_total",
		Help:      "Total number of pipeline runs recorded.",
	}, []string{"status"})

	// HTTPRequests counts API requests by method, route pattern and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency by method and route pattern
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ConnectedStreamClients tracks live websocket alert-stream subscribers
	ConnectedStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients_connected",
		Help:      "Number of connected alert stream clients.",
	})
)
