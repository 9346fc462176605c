package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics tracks model calls, retries and the outbound HTTP they make
type GatewayMetrics struct {
	registry *prometheus.Registry

	attemptsTotal    *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	attemptDuration  *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewGatewayMetrics creates and registers gateway metrics
func NewGatewayMetrics(registry *prometheus.Registry) (*GatewayMetrics, error) {
	m := &GatewayMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gateway metrics: %w", err)
	}
	return m, nil
}

func (m *GatewayMetrics) initMetrics() {
	m.attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_model_attempts_total",
			Help: "Model invocation attempts including retries",
		},
		[]string{"backend"},
	)

	m.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_model_retries_total",
			Help: "Retries scheduled after a transient failure",
		},
		[]string{"backend", "class"}, // class: transient, rate_limited
	)

	m.outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_model_invocations_total",
			Help: "Completed model invocations by final outcome class",
		},
		[]string{"backend", "class"},
	)

	m.attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trapcam_model_attempt_duration_seconds",
			Help:    "Latency of a single model attempt",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"backend"},
	)

	m.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trapcam_upstream_http_requests_total",
			Help: "Outbound HTTP requests by host and status code",
		},
		[]string{"host", "status_code"}, // status_code is "error" on transport failure
	)

	m.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trapcam_upstream_http_duration_seconds",
			Help:    "Outbound HTTP latency",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
		[]string{"host"},
	)
}

// RecordAttempt counts one attempt and its latency
func (m *GatewayMetrics) RecordAttempt(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(backend).Inc()
	m.attemptDuration.WithLabelValues(backend).Observe(seconds)
}

// RecordRetry counts a scheduled retry
func (m *GatewayMetrics) RecordRetry(backend, class string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(backend, class).Inc()
}

// RecordOutcome counts a completed invocation
func (m *GatewayMetrics) RecordOutcome(backend, class string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(backend, class).Inc()
}

// RecordUpstream counts an outbound HTTP request
func (m *GatewayMetrics) RecordUpstream(host, statusCode string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(host, statusCode).Inc()
	m.upstreamDuration.WithLabelValues(host).Observe(seconds)
}

// Collect implements prometheus.Collector
func (m *GatewayMetrics) Collect(ch chan<- prometheus.Metric) {
	m.attemptsTotal.Collect(ch)
	m.retriesTotal.Collect(ch)
	m.outcomesTotal.Collect(ch)
	m.attemptDuration.Collect(ch)
	m.upstreamRequests.Collect(ch)
	m.upstreamDuration.Collect(ch)
}

// Describe implements prometheus.Collector
func (m *GatewayMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.attemptsTotal.Describe(ch)
	m.retriesTotal.Describe(ch)
	m.outcomesTotal.Describe(ch)
	m.attemptDuration.Describe(ch)
	m.upstreamRequests.Describe(ch)
	m.upstreamDuration.Describe(ch)
}
