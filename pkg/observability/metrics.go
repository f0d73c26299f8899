// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the ollabridge gateway.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/ollabridge/pkg/api"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollabridge_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollabridge_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active NDJSON streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ollabridge_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ProviderRequestsTotal counts upstream calls by outcome kind.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollabridge_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "operation", "status"},
	)

	// ProviderLatency records upstream latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollabridge_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model", "operation"},
	)

	// ProviderTokensTotal counts tokens reported by upstreams by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollabridge_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// EmbeddingInputsTotal counts texts submitted for embedding.
	EmbeddingInputsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollabridge_embedding_inputs_total",
			Help: "Embedding inputs",
		},
		[]string{"model"},
	)

	// ErrorsTotal counts classified errors returned to clients by kind.
	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollabridge_errors_total",
			Help: "Classified errors",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		EmbeddingInputsTotal,
		ErrorsTotal,
	)
}

// ObserveProvider records one upstream call. The status label is "ok" or
// the error kind.
func ObserveProvider(provider, model, operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = string(api.AsAPIError(err).Kind)
	}
	ProviderRequestsTotal.WithLabelValues(provider, model, operation, status).Inc()
	ProviderLatency.WithLabelValues(provider, model, operation).Observe(time.Since(start).Seconds())
}

// ObserveTokens records token usage when the upstream reported it.
func ObserveTokens(provider, model string, input, output int) {
	if input > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(input))
	}
	if output > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(output))
	}
}
