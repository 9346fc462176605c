package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/trapcam/cmd/batch"
	"github.com/tphakala/trapcam/cmd/identify"
	"github.com/tphakala/trapcam/cmd/serve"
	"github.com/tphakala/trapcam/cmd/species"
	"github.com/tphakala/trapcam/cmd/stations"
	"github.com/tphakala/trapcam/cmd/version"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/conf"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(rt *app.Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trapcam",
		Short:         "Camera-trap species identification with vision language models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd); err != nil {
		GetLogger().Error("failed to bind flags", logger.Error(err))
	}

	versionCmd := version.Command(rt)

	subcommands := []*cobra.Command{
		serve.Command(rt),
		identify.Command(rt),
		batch.Command(rt),
		species.Command(rt),
		stations.Command(rt),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(rt)
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		rt.Close()
	}

	return rootCmd
}

// initialize loads settings and configures logging and telemetry.
// Flags were bound to viper, so command-line values take precedence.
func initialize(rt *app.Runtime) error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}
	rt.Settings = settings

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, rt.Build.Release()); err != nil {
			GetLogger().Warn("sentry telemetry disabled", logger.Error(err))
		} else {
			GetLogger().Info("sentry telemetry enabled")
		}
	}

	GetLogger().Debug("configuration loaded",
		logger.String("provider", settings.LLM.Provider),
		logger.String("model", settings.LLM.Model),
		logger.String("config_file", viper.ConfigFileUsed()))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config.yaml")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("provider", "", "Model provider: gemini, openai or static")
	flags.String("model", "", "Model name passed to the provider")
	flags.Float64("review-threshold", 0, "Confidence below which results need review")

	bindings := map[string]string{
		"config":                      "config",
		"debug":                       "debug",
		"llm.provider":                "provider",
		"llm.model":                   "model",
		"calibration.reviewthreshold": "review-threshold",
	}
	var errs []string
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("error binding flags: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetLogger returns the cli module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("cli")
}
