// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/trapcam/internal/api"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/logger"
)

// telemetryFlushTimeout bounds how long shutdown waits for Sentry
const telemetryFlushTimeout = 2 * time.Second

// Command creates the serve command
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the identification HTTP API",
		Long:  "Serve POST /identify and the species, stations, health and metrics endpoints until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), rt)
		},
	}

	cmd.Flags().String("listen", "", "Address to listen on, e.g. :8080")
	_ = viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func run(parent context.Context, rt *app.Runtime) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, err := rt.Context()
	if err != nil {
		return err
	}

	server, err := api.New(ctx.Settings, ctx.Pipeline, api.WithMetrics(ctx.Metrics))
	if err != nil {
		return err
	}

	log := logger.Global().Module("serve")
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if parent.Err() == nil && sigCtx.Err() != nil {
			log.Info("shutdown signal received")
		}
		return nil
	})

	err = g.Wait()
	errors.FlushTelemetry(telemetryFlushTimeout)
	if flushErr := logger.Global().Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}
