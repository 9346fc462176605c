package llm

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability/metrics"
)

const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = time.Second
)

// GatewayConfig tunes retry behaviour
type GatewayConfig struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BaseDelay is doubled on every retry
	BaseDelay time.Duration
	// AttemptTimeout bounds each attempt; zero leaves only the caller's deadline
	AttemptTimeout time.Duration
}

// Gateway invokes a Generator with classification and bounded retry. Safe for
// concurrent use; it holds no per-request state.
type Gateway struct {
	gen     Generator
	cfg     GatewayConfig
	metrics *metrics.GatewayMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewGateway wraps gen. A negative MaxRetries or non-positive BaseDelay takes
// the default. m may be nil.
func NewGateway(gen Generator, cfg GatewayConfig, m *metrics.GatewayMetrics) *Gateway {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	return &Gateway{gen: gen, cfg: cfg, metrics: m, sleep: sleepContext}
}

// Name returns the wrapped generator's name
func (g *Gateway) Name() string {
	return g.gen.Name()
}

// Invoke returns the raw model text. Failures come back as EnhancedErrors in
// CategoryUpstreamTransient or CategoryUpstreamPermanent; configuration errors
// from the backend pass through unchanged.
func (g *Gateway) Invoke(ctx context.Context, prompt string, image imaging.Payload) (string, error) {
	backend := g.gen.Name()
	log := GetLogger().WithContext(ctx).With(logger.String("backend", backend))
	start := time.Now()

	for attempt := 0; ; attempt++ {
		text, err := g.attempt(ctx, prompt, image)
		if err == nil {
			g.metrics.RecordOutcome(backend, metrics.ClassSuccess)
			return text, nil
		}

		if errors.IsConfig(err) {
			g.metrics.RecordOutcome(backend, metrics.ClassConfig)
			return "", err
		}

		// the caller gave up; no point retrying
		if ctxErr := ctx.Err(); ctxErr != nil {
			g.metrics.RecordOutcome(backend, metrics.ClassCanceled)
			return "", transientError(errors.Join(ctxErr, err), failure{transient: true}, attempt+1, time.Since(start))
		}

		f := classify(err)
		if !f.transient {
			g.metrics.RecordOutcome(backend, metrics.ClassPermanent)
			log.Error("model call failed permanently",
				logger.Int("attempt", attempt),
				logger.Int("status_code", f.status),
				logger.Error(err))
			return "", permanentError(err, f, attempt+1, time.Since(start))
		}

		if attempt >= g.cfg.MaxRetries {
			g.metrics.RecordOutcome(backend, f.class())
			log.Error("model call failed after retries",
				logger.Int("attempts", attempt+1),
				logger.String("class", f.class()),
				logger.Error(err))
			return "", transientError(err, f, attempt+1, time.Since(start))
		}

		delay := g.cfg.BaseDelay << attempt
		g.metrics.RecordRetry(backend, f.class())
		log.Warn("model call failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.String("class", f.class()),
			logger.Error(err))

		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			g.metrics.RecordOutcome(backend, metrics.ClassCanceled)
			return "", transientError(errors.Join(sleepErr, err), f, attempt+1, time.Since(start))
		}
	}
}

// attempt runs one call. Whitespace-only text counts as an error.
func (g *Gateway) attempt(ctx context.Context, prompt string, image imaging.Payload) (string, error) {
	if g.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.gen.Generate(ctx, prompt, image)
	g.metrics.RecordAttempt(g.gen.Name(), time.Since(start).Seconds())

	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

// operationModelCall names the gateway operation in error context
const operationModelCall = "model_call"

// transientError and permanentError record the attempts and the time spent
// across all of them, backoff included
func transientError(err error, f failure, attempts int, elapsed time.Duration) error {
	b := errors.New(err).
		Component("llm").
		Category(errors.CategoryUpstreamTransient).
		Priority(errors.PriorityMedium).
		Timing(operationModelCall, elapsed).
		Context(errors.ContextRateLimited, f.rateLimited).
		Context(errors.ContextAttempts, attempts)
	if f.status != 0 {
		b = b.Context(errors.ContextStatusCode, f.status)
	}
	return b.Build()
}

func permanentError(err error, f failure, attempts int, elapsed time.Duration) error {
	b := errors.New(err).
		Component("llm").
		Category(errors.CategoryUpstreamPermanent).
		Priority(errors.PriorityHigh).
		Timing(operationModelCall, elapsed).
		Context(errors.ContextAttempts, attempts)
	if f.status != 0 {
		b = b.Context(errors.ContextStatusCode, f.status)
	}
	return b.Build()
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
