package llm

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/httpclient"
	"github.com/tphakala/trapcam/internal/llm/gemini"
	"github.com/tphakala/trapcam/internal/llm/openai"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability/metrics"
)

// New builds the Generator selected by settings.Provider.
//
// When credentials are missing the returned Generator is still usable: every
// call fails with a configuration error, which the API reports as HTTP 500.
// The accompanying error lets callers decide whether to start anyway.
func New(settings *conf.LLMSettings, client *httpclient.Client) (Generator, error) {
	var gen Generator
	switch settings.Provider {
	case conf.ProviderGemini:
		gen = gemini.New(settings.APIKey, settings.Model, float32(settings.Temperature))
	case conf.ProviderOpenAI:
		if client == nil {
			client = httpclient.New(nil)
		}
		gen = openai.New(client, settings.APIKey, settings.Model, settings.BaseURL, settings.Temperature)
	case conf.ProviderStatic:
		return NewStatic(DryRunResponse), nil
	default:
		return nil, errors.ConfigError("llm", "unsupported model provider "+strconv.Quote(settings.Provider))
	}

	if settings.APIKey == "" {
		return gen, errors.New(errors.NewStd("no API key configured for provider "+settings.Provider)).
			Component("llm").
			Category(errors.CategoryConfiguration).
			Context("provider", settings.Provider).
			Build()
	}

	GetLogger().Info("model backend ready",
		logger.String("provider", settings.Provider),
		logger.String("model", settings.Model))
	return gen, nil
}

// NewGatewayFromSettings wraps gen with the retry policy from settings
func NewGatewayFromSettings(gen Generator, settings *conf.LLMSettings, m *metrics.GatewayMetrics) *Gateway {
	return NewGateway(gen, GatewayConfig{
		MaxRetries:     settings.MaxRetries,
		BaseDelay:      settings.BaseDelay,
		AttemptTimeout: settings.Timeout,
	}, m)
}

// InstrumentClient records every outbound request on the gateway metrics
func InstrumentClient(client *httpclient.Client, m *metrics.GatewayMetrics) {
	if client == nil || m == nil {
		return
	}
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		status := "error"
		if err == nil && resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		m.RecordUpstream(req.URL.Host, status, elapsed.Seconds())
	})
}
