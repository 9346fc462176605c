// env.go - Environment variable configuration and validation for trapcam
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "TRAPCAM_DEBUG", validateEnvBool},

		// Model backend
		{"llm.provider", "TRAPCAM_PROVIDER", validateEnvProvider},
		{"llm.model", "TRAPCAM_MODEL", nil},
		{"llm.apikey", "TRAPCAM_API_KEY", nil},
		{"llm.baseurl", "TRAPCAM_BASE_URL", validateEnvURL},
		{"llm.timeout", "TRAPCAM_MODEL_TIMEOUT", validateEnvDuration},
		{"llm.maxretries", "TRAPCAM_MAX_RETRIES", validateEnvRetries},

		// Calibration
		{"calibration.reviewthreshold", "TRAPCAM_REVIEW_THRESHOLD", validateEnvUnit},
		{"calibration.infraredpenalty", "TRAPCAM_INFRARED_PENALTY", validateEnvUnit},
		{"calibration.flasheyeshinecap", "TRAPCAM_FLASH_CAP", validateEnvUnit},

		// Data files
		{"taxonomy.path", "TRAPCAM_TAXONOMY_PATH", validateEnvPath},
		{"taxonomy.stationspath", "TRAPCAM_STATIONS_PATH", validateEnvPath},

		// Web server
		{"webserver.listen", "TRAPCAM_LISTEN", nil},
		{"webserver.requesttimeout", "TRAPCAM_REQUEST_TIMEOUT", validateEnvDuration},

		{"cache.enabled", "TRAPCAM_CACHE", validateEnvBool},
		{"sentry.dsn", "TRAPCAM_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvProvider(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ProviderGemini, ProviderOpenAI, ProviderStatic:
		return nil
	}
	return fmt.Errorf("provider must be one of %s, %s, %s", ProviderGemini, ProviderOpenAI, ProviderStatic)
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvRetries(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 || n > maxRetries {
		return fmt.Errorf("retries must be between 0 and %d, got %d", maxRetries, n)
	}
	return nil
}

// validateEnvUnit accepts a float within [0,1]
func validateEnvUnit(value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %g", f)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	if _, err := os.Stat(value); err != nil {
		return fmt.Errorf("path is not accessible: %w", err)
	}
	return nil
}
