package llm

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/httpclient"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/observability/metrics"
)

// scriptedGenerator returns the scripted results in order
type scriptedGenerator struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	text string
	err  error
}

func (s *scriptedGenerator) Generate(_ context.Context, _ string, _ imaging.Payload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.text, r.err
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordSleeps replaces the gateway's sleep and returns the recorded delays
func recordSleeps(g *Gateway) *[]time.Duration {
	var delays []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return &delays
}

var (
	transientErr = &httpclient.StatusError{Code: http.StatusServiceUnavailable, Body: "overloaded"}
	rateLimitErr = &httpclient.StatusError{Code: http.StatusTooManyRequests, Body: "quota"}
	badRequest   = &httpclient.StatusError{Code: http.StatusBadRequest, Body: "invalid image"}
)

func TestInvokeReturnsRawText(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{text: "  ```json\n{}\n```  "}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, nil)

	text, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.NoError(t, err)
	assert.Equal(t, "  ```json\n{}\n```  ", text, "text is returned verbatim")
	assert.Equal(t, 1, gen.Calls())
}

func TestInvokeStopsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{
		{err: transientErr}, {err: transientErr}, {err: transientErr}, {text: `{"ok":true}`},
	}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 2, BaseDelay: 100 * time.Millisecond}, nil)
	delays := recordSleeps(g)

	_, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamTransient(err))
	assert.False(t, errors.IsRateLimited(err))

	assert.Equal(t, 3, gen.Calls(), "one attempt plus exactly two retries")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.GetContext()[errors.ContextAttempts])
	assert.Equal(t, http.StatusServiceUnavailable, ee.GetContext()[errors.ContextStatusCode])
	assert.Equal(t, operationModelCall, ee.GetContext()[errors.ContextOperation])
	elapsed, ok := ee.GetContext()["duration_ms"].(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, int64(0))
}

func TestInvokeRecoversWithinBudget(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{
		{err: rateLimitErr}, {text: "   "}, {text: `{"ok":true}`},
	}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 2, BaseDelay: time.Second}, nil)
	delays := recordSleeps(g)

	text, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, text)
	assert.Equal(t, 3, gen.Calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestInvokeEmptyResponseIsTransient(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{text: "\n\t "}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 1, BaseDelay: time.Millisecond}, nil)
	recordSleeps(g)

	_, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamTransient(err))
	assert.Equal(t, 2, gen.Calls())
}

func TestInvokePermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{err: badRequest}, {text: "{}"}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 5, BaseDelay: time.Millisecond}, nil)
	delays := recordSleeps(g)

	_, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamPermanent(err))
	assert.Equal(t, 1, gen.Calls())
	assert.Empty(t, *delays)

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, operationModelCall, ee.GetContext()[errors.ContextOperation])
	assert.Contains(t, ee.GetContext(), "duration_ms")
}

func TestInvokeRateLimitIsFlagged(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{err: rateLimitErr}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 0, BaseDelay: time.Millisecond}, nil)

	_, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, 1, gen.Calls(), "max_retries 0 means a single attempt")
}

func TestInvokeConfigErrorPassesThrough(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{err: errors.ConfigError("llm", "no key")}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, nil)

	_, err := g.Invoke(context.Background(), "p", imaging.Payload{})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.Equal(t, 1, gen.Calls())
}

func TestInvokeCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{results: []result{{err: transientErr}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 3, BaseDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := g.Invoke(ctx, "p", imaging.Payload{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "backoff must not block past cancellation")
	assert.True(t, errors.IsUpstreamTransient(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.Calls())
}

func TestInvokeDefaults(t *testing.T) {
	t.Parallel()

	g := NewGateway(NewStatic("{}"), GatewayConfig{MaxRetries: -1}, nil)
	assert.Equal(t, DefaultMaxRetries, g.cfg.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, g.cfg.BaseDelay)
	assert.Equal(t, "static", g.Name())
}

func TestInvokeRecordsMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewGatewayMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	gen := &scriptedGenerator{results: []result{{err: transientErr}, {text: "{}"}}}
	g := NewGateway(gen, GatewayConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, m)
	recordSleeps(g)

	_, err = g.Invoke(context.Background(), "p", imaging.Payload{})
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m, "trapcam_model_retries_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m, "trapcam_model_invocations_total"))
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
