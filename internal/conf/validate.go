// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// maxRetries bounds llm.maxretries and batch.retries
const maxRetries = 10

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateLLMSettings(&settings.LLM); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := settings.Calibration.Validate(); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateBatchSettings(&settings.Batch); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Imaging.MaxBytes < 0 {
		ve.Errors = append(ve.Errors, "imaging.maxbytes must not be negative")
	}

	if settings.Cache.Enabled && settings.Cache.TTL <= 0 {
		ve.Errors = append(ve.Errors, "cache.ttl must be positive when the cache is enabled")
	}

	if settings.Sentry.Enabled && strings.TrimSpace(settings.Sentry.DSN) == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

// validateLLMSettings checks the provider block. A missing API key is not an
// error here: the backend reports it as a configuration error per request.
func validateLLMSettings(s *LLMSettings) error {
	var errs []string

	switch s.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderStatic:
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", s.Provider))
	}

	if s.Provider != ProviderStatic && strings.TrimSpace(s.Model) == "" {
		errs = append(errs, "llm.model is required")
	}
	if s.Provider == ProviderOpenAI {
		if err := validateEnvURL(s.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("llm.baseurl: %v", err))
		}
	}
	if s.MaxRetries < 0 || s.MaxRetries > maxRetries {
		errs = append(errs, fmt.Sprintf("llm.maxretries must be between 0 and %d", maxRetries))
	}
	if s.BaseDelay <= 0 {
		errs = append(errs, "llm.basedelay must be positive")
	}
	if s.Timeout < 0 {
		errs = append(errs, "llm.timeout must not be negative")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("llm settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebServerSettings(s *WebServerSettings) error {
	var errs []string

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("webserver.listen %q: %v", s.Listen, err))
	}
	if s.BodyLimit != "" {
		if _, err := bytes.Parse(s.BodyLimit); err != nil {
			errs = append(errs, fmt.Sprintf("webserver.bodylimit %q: %v", s.BodyLimit, err))
		}
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, "webserver.requesttimeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("webserver settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBatchSettings(s *BatchSettings) error {
	var errs []string
	if s.Pacing < 0 {
		errs = append(errs, "batch.pacing must not be negative")
	}
	if s.Retries < 0 || s.Retries > maxRetries {
		errs = append(errs, fmt.Sprintf("batch.retries must be between 0 and %d", maxRetries))
	}
	if s.RetryDelay < 0 {
		errs = append(errs, "batch.retrydelay must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("batch settings: %s", strings.Join(errs, "; "))
	}
	return nil
}
