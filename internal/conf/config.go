// config.go: viper-backed settings for trapcam
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/trapcam/internal/calibrate"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Supported model providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

const osWindows = "windows"

// LLMSettings selects and tunes the vision model backend
type LLMSettings struct {
	Provider    string        // gemini, openai or static
	Model       string        // model name passed to the provider
	APIKey      string        // falls back to GEMINI_API_KEY / OPENAI_API_KEY
	BaseURL     string        // OpenAI-compatible endpoint root
	Timeout     time.Duration // per-attempt deadline
	MaxRetries  int           // retries after the first attempt
	BaseDelay   time.Duration // first backoff delay, doubled per retry
	Temperature float64
}

// TaxonomySettings points at optional replacement data files
type TaxonomySettings struct {
	Path         string // species JSON; empty uses the embedded list
	StationsPath string // stations JSON; empty uses the embedded list
}

// ImagingSettings bounds inbound images
type ImagingSettings struct {
	MaxBytes int // decoded size limit, 0 disables the check
}

// CacheSettings controls the identification result cache
type CacheSettings struct {
	Enabled bool
	TTL     time.Duration
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Listen         string        // address to listen on, e.g. ":8080"
	BodyLimit      string        // echo body limit, e.g. "20M"
	RequestTimeout time.Duration // default deadline when X-Request-Timeout is absent
}

// BatchSettings configures client-side pacing for the batch command
type BatchSettings struct {
	Pacing     time.Duration // minimum gap between images
	Retries    int           // retries for a retryable failure
	RetryDelay time.Duration // multiplied by the retry number
}

// MetricsSettings toggles the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
}

// SentrySettings configures optional error telemetry
type SentrySettings struct {
	Enabled bool
	DSN     string
}

// Settings is the complete runtime configuration
type Settings struct {
	Debug bool

	LLM         LLMSettings
	Calibration calibrate.Policy
	Taxonomy    TaxonomySettings
	Imaging     ImagingSettings
	Cache       CacheSettings
	WebServer   WebServerSettings
	Batch       BatchSettings
	Metrics     MetricsSettings
	Sentry      SentrySettings
	Logging     logger.LoggingConfig `mapstructure:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings.
// A missing config file is created from the embedded default.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings, err := unmarshal()
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// unmarshal decodes the current viper state, resolves provider credentials and validates
func unmarshal() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context(errors.ContextOperation, "unmarshal-config").
			Build()
	}

	settings.LLM.Provider = strings.ToLower(strings.TrimSpace(settings.LLM.Provider))
	resolveAPIKey(&settings.LLM)

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// resolveAPIKey fills an empty key from the provider's conventional variable
func resolveAPIKey(llm *LLMSettings) {
	if llm.APIKey != "" {
		return
	}
	switch llm.Provider {
	case ProviderGemini:
		llm.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderOpenAI:
		llm.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// initViper sets defaults, binds the environment and reads the config file
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
	} else {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		// bad environment values are reported but do not stop startup; the
		// validator catches anything that would actually break
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the first default path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryFileIO).
			Context(errors.ContextOperation, "read-embedded-config").
			Build()
	}
	return data, nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml. When
// one of them already holds a config file only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context(errors.ContextOperation, "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context(errors.ContextOperation, "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "trapcam"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "trapcam"),
			"/etc/trapcam",
		}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// Setting returns the loaded settings, loading them on first use
func Setting() *Settings {
	settingsMutex.RLock()
	s := settingsInstance
	settingsMutex.RUnlock()
	if s != nil {
		return s
	}

	s, err := Load()
	if err != nil {
		GetLogger().Error("failed to load settings", logger.Error(err))
		os.Exit(1)
	}
	return s
}

// GetSettings returns the current settings without loading
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
