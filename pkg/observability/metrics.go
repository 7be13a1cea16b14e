// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the vizagent service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizagent_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vizagent_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// JobsTotal counts jobs by terminal lifecycle status.
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizagent_jobs_total",
			Help: "Jobs by terminal status",
		},
		[]string{"status"},
	)

	// JobsActive tracks the number of jobs currently processing.
	JobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vizagent_jobs_active",
			Help: "Jobs currently processing",
		},
	)

	// JobIterations records how many iterations a job used before finishing.
	JobIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vizagent_job_iterations",
			Help:    "Iterations per finished job",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	// ProviderRequestsTotal counts requests sent to the model backend by role.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizagent_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"role", "model", "status"},
	)

	// ProviderLatency records model backend latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vizagent_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"role", "model"},
	)

	// SandboxExecutionsTotal counts sandbox runs by outcome.
	SandboxExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vizagent_sandbox_executions_total",
			Help: "Sandbox executions",
		},
		[]string{"status"},
	)

	// SandboxDuration records sandbox execution duration in seconds.
	SandboxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vizagent_sandbox_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		JobsTotal,
		JobsActive,
		JobIterations,
		ProviderRequestsTotal,
		ProviderLatency,
		SandboxExecutionsTotal,
		SandboxDuration,
	)
}
