// Package app wires settings into a ready-to-use identification pipeline.
// Commands build one Context and share it.
package app

import (
	"fmt"

	"github.com/tphakala/trapcam/internal/buildinfo"
	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/httpclient"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/llm"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability"
	"github.com/tphakala/trapcam/internal/pipeline"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

var errNotLoaded = errors.NewStd("configuration has not been loaded")

// Context holds the application state shared by commands
type Context struct {
	Settings  *conf.Settings
	BuildInfo *buildinfo.Context

	Registry *taxonomy.Registry
	Stations *taxonomy.Stations
	Metrics  *observability.Metrics
	Client   *httpclient.Client
	Pipeline *pipeline.Pipeline
}

// Option customizes Context construction
type Option func(*options)

type options struct {
	generator llm.Generator
}

// WithGenerator bypasses the provider factory, mainly for tests
func WithGenerator(gen llm.Generator) Option {
	return func(o *options) {
		o.generator = gen
	}
}

// New loads the taxonomy and builds the model backend and pipeline.
// A missing API key is logged, not returned: the server still starts and
// each identification fails with a configuration error.
func New(settings *conf.Settings, build *buildinfo.Context, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry, err := taxonomy.Load(settings.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	stations, err := taxonomy.LoadStations(settings.Taxonomy.StationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.LLM.Timeout,
		UserAgent:      "trapcam/" + build.GetVersion(),
	})
	llm.InstrumentClient(client, m.Gateway)

	gen := o.generator
	if gen == nil {
		gen, err = llm.New(&settings.LLM, client)
		switch {
		case gen == nil:
			client.Close()
			return nil, err
		case err != nil && errors.IsConfig(err):
			GetLogger().Warn("model backend is not fully configured, identifications will fail",
				logger.String("provider", settings.LLM.Provider),
				logger.Error(err))
		case err != nil:
			client.Close()
			return nil, err
		}
	}

	gateway := llm.NewGatewayFromSettings(gen, &settings.LLM, m.Gateway)

	var cacheTTL = settings.Cache.TTL
	if !settings.Cache.Enabled {
		cacheTTL = 0
	}
	p := pipeline.New(registry, stations, gateway, pipeline.Config{
		Normalizer: imaging.Normalizer{MaxBytes: settings.Imaging.MaxBytes},
		Policy:     settings.Calibration,
		CacheTTL:   cacheTTL,
	}, m.Pipeline)

	GetLogger().Info("pipeline ready",
		logger.String("model", p.Model()),
		logger.Int("species", registry.Len()),
		logger.Int("stations", len(stations.All())),
		logger.Bool("cache", cacheTTL > 0))

	return &Context{
		Settings:  settings,
		BuildInfo: build,
		Registry:  registry,
		Stations:  stations,
		Metrics:   m,
		Client:    client,
		Pipeline:  p,
	}, nil
}

// Close releases idle connections
func (c *Context) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// GetLogger returns the app module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}
