package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/observability/metrics"
)

// TestNewMetricsConcurrency checks that each Metrics owns its registry so
// concurrent construction never collides on registration.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Registry())
			assert.NotNil(t, m.Pipeline)
			assert.NotNil(t, m.Gateway)
			assert.NotNil(t, m.HTTP)
			m.Pipeline.RecordRequest(metrics.OutcomeIdentified, 0.5)
		})
	}
	wg.Wait()
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Pipeline.RecordRequest(metrics.OutcomeRejected, 0.2)
	m.Gateway.RecordRetry("gemini", metrics.ClassTransient)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `trapcam_identify_requests_total{outcome="rejected"} 1`)
	assert.Contains(t, text, `trapcam_model_retries_total{backend="gemini",class="transient"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
