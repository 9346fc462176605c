// Package api provides the HTTP server infrastructure for trapcam.
// This package contains the server lifecycle while the JSON endpoints are
// organized in the v1 subpackage.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("server")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// write deadline headroom over the request timeout
	writeTimeoutSlack = 10 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port to bind

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration // default per-request deadline

	BodyLimit string // Maximum request body size (e.g., "20M")

	Debug          bool
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    120*time.Second + writeTimeoutSlack,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		RequestTimeout:  120 * time.Second,
		BodyLimit:       "20M",
		MetricsEnabled:  true,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	cfg.RequestTimeout = settings.WebServer.RequestTimeout
	if cfg.RequestTimeout > 0 {
		cfg.WriteTimeout = cfg.RequestTimeout + writeTimeoutSlack
	}
	cfg.Debug = settings.Debug
	cfg.MetricsEnabled = settings.Metrics.Enabled

	return cfg
}

// MaxRequestTimeout is the longest deadline a request may carry and still get
// its response written before WriteTimeout cuts the connection.
func (c *Config) MaxRequestTimeout() time.Duration {
	return max(c.WriteTimeout-writeTimeoutSlack, 0)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: listen=%s, body_limit=%s, request_timeout=%s, metrics=%v",
		c.Listen, c.BodyLimit, c.RequestTimeout, c.MetricsEnabled)
}
