// internal/api/v1/api.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability"
	"github.com/tphakala/trapcam/internal/pipeline"
)

// Identifier is the part of the pipeline the controller drives
type Identifier interface {
	Identify(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Controller manages the identification API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Pipeline *pipeline.Pipeline
	Settings *conf.Settings

	identifier Identifier
	metrics    *observability.Metrics
	startTime  time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithIdentifier replaces the pipeline as the identify backend. Tests use it
// to inject failures.
func WithIdentifier(id Identifier) Option {
	return func(c *Controller) {
		c.identifier = id
	}
}

// WithMetrics sets the metrics instance; nil disables HTTP metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates the controller and registers its routes on e
func New(e *echo.Echo, p *pipeline.Pipeline, settings *conf.Settings, opts ...Option) *Controller {
	c := &Controller{
		Echo:       e,
		Pipeline:   p,
		Settings:   settings,
		identifier: p,
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Echo.GET("/health", c.HealthCheck)
	c.Echo.POST("/identify", c.Identify)

	c.Group.POST("/identify", c.Identify)
	c.Group.GET("/species", c.ListSpecies)
	c.Group.GET("/species/:id", c.GetSpecies)
	c.Group.GET("/stations", c.ListStations)
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string  `json:"status"`
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	SpeciesCount  int     `json:"species_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthCheck reports the configured backend and registry size
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{
		Status:        "healthy",
		Model:         c.Pipeline.Model(),
		SpeciesCount:  c.Pipeline.Registry().Len(),
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}
	if c.Settings != nil {
		resp.Provider = c.Settings.LLM.Provider
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetLogger returns the api module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}
