package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(reg)
	require.NoError(t, err)

	m.RecordRequest(OutcomeIdentified, 1.2)
	m.RecordRequest(OutcomeIdentified, 0.8)
	m.RecordRequest(OutcomeRejected, 0.3)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordExtraction(StageStage2, "fenced")

	done := m.TrackInFlight()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.inFlight), 1e-9)
	done()

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(OutcomeIdentified)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(OutcomeRejected)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.cacheHits), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.cacheMisses), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.inFlight), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.extractionTotal.WithLabelValues(StageStage2, "fenced")), 1e-9)

	_, err = NewPipelineMetrics(reg)
	require.Error(t, err, "double registration fails")
}

func TestGatewayMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewGatewayMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordAttempt("gemini", 0.5)
	m.RecordAttempt("gemini", 0.7)
	m.RecordRetry("gemini", ClassRateLimited)
	m.RecordOutcome("gemini", ClassSuccess)
	m.RecordUpstream("api.openai.com", "200", 0.4)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("gemini")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.retriesTotal.WithLabelValues("gemini", ClassRateLimited)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.outcomesTotal.WithLabelValues("gemini", ClassSuccess)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("api.openai.com", "200")), 1e-9)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	var p *PipelineMetrics
	var g *GatewayMetrics
	var h *HTTPMetrics

	assert.NotPanics(t, func() {
		p.RecordRequest(OutcomeError, 1)
		p.RecordCache(true)
		p.TrackInFlight()()
		g.RecordAttempt("x", 1)
		g.RecordRetry("x", ClassTransient)
		h.RecordRequest("GET", "/health", 200, 0.01)
		h.RecordError("/identify", ClassInput)
	})
}

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRequest("POST", "/identify", 429, 0.2)
	m.RecordError("/identify", ClassRateLimited)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/identify", "429")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("/identify", ClassRateLimited)), 1e-9)
}
