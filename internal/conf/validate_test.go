package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/calibrate"
)

func validSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Provider:    ProviderGemini,
			Model:       "gemini-2.0-flash",
			BaseURL:     "https://api.openai.com",
			Timeout:     time.Minute,
			MaxRetries:  2,
			BaseDelay:   time.Second,
			Temperature: 0.1,
		},
		Calibration: calibrate.DefaultPolicy(),
		Cache:       CacheSettings{Enabled: true, TTL: time.Hour},
		WebServer:   WebServerSettings{Listen: ":8080", BodyLimit: "20M", RequestTimeout: time.Minute},
		Batch:       BatchSettings{Pacing: time.Second, Retries: 3, RetryDelay: 2 * time.Second},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"unknown provider", func(s *Settings) { s.LLM.Provider = "claude" }, "llm.provider"},
		{"missing model", func(s *Settings) { s.LLM.Model = " " }, "llm.model"},
		{"static needs no model", func(s *Settings) { s.LLM.Provider = ProviderStatic; s.LLM.Model = "" }, ""},
		{"openai bad base url", func(s *Settings) { s.LLM.Provider = ProviderOpenAI; s.LLM.BaseURL = "ftp://x" }, "llm.baseurl"},
		{"negative retries", func(s *Settings) { s.LLM.MaxRetries = -1 }, "llm.maxretries"},
		{"zero base delay", func(s *Settings) { s.LLM.BaseDelay = 0 }, "llm.basedelay"},
		{"threshold above one", func(s *Settings) { s.Calibration.ReviewThreshold = 1.2 }, "reviewthreshold"},
		{"bad listen", func(s *Settings) { s.WebServer.Listen = "8080" }, "webserver.listen"},
		{"bad body limit", func(s *Settings) { s.WebServer.BodyLimit = "lots" }, "webserver.bodylimit"},
		{"batch retries", func(s *Settings) { s.Batch.Retries = 99 }, "batch.retries"},
		{"negative max bytes", func(s *Settings) { s.Imaging.MaxBytes = -1 }, "imaging.maxbytes"},
		{"cache without ttl", func(s *Settings) { s.Cache.TTL = 0 }, "cache.ttl"},
		{"cache disabled without ttl", func(s *Settings) { s.Cache.Enabled = false; s.Cache.TTL = 0 }, ""},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var ve ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.LLM.Provider = "nope"
	s.WebServer.Listen = "bad"
	s.Batch.Pacing = -time.Second

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateEnvHelpers(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvBool(" true "))
	assert.Error(t, validateEnvBool("yes"))
	assert.NoError(t, validateEnvProvider("OpenAI"))
	assert.Error(t, validateEnvProvider("claude"))
	assert.NoError(t, validateEnvURL("http://localhost:11434"))
	assert.Error(t, validateEnvURL("localhost"))
	assert.NoError(t, validateEnvDuration("90s"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.NoError(t, validateEnvRetries("0"))
	assert.Error(t, validateEnvRetries("11"))
	assert.NoError(t, validateEnvUnit("0.65"))
	assert.Error(t, validateEnvUnit("65"))
	assert.NoError(t, validateEnvPath(t.TempDir()))
	assert.Error(t, validateEnvPath("/definitely/not/here"))
}
