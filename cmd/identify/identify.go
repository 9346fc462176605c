// Package identify implements the single-image command.
package identify

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/trapcam/cmd/output"
	v1 "github.com/tphakala/trapcam/internal/api/v1"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/pipeline"
)

// Command creates the identify command
func Command(rt *app.Runtime) *cobra.Command {
	var (
		station string
		timeout time.Duration
		format  string
	)

	cmd := &cobra.Command{
		Use:   "identify [image]",
		Short: "Identify the species in one camera-trap image",
		Long:  "Run both identification stages on a JPEG, PNG or WebP file and print the result.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := rt.Context()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			res, err := File(runCtx, ctx.Pipeline, imaging.Normalizer{MaxBytes: ctx.Settings.Imaging.MaxBytes}, args[0], station)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, v1.NewIdentifyResponse(res))
		},
	}

	cmd.Flags().StringVar(&station, "station", "", "Camera station id")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for the whole identification")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatJSON, "Output format: json, yaml")

	return cmd
}

// Identifier runs the pipeline on a decoded image
type Identifier interface {
	IdentifyPayload(ctx context.Context, payload imaging.Payload, station string) (*pipeline.Result, error)
}

// File reads path and identifies it
func File(ctx context.Context, id Identifier, n imaging.Normalizer, path, station string) (*pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("cli").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
	payload, err := n.NormalizeBytes(data, path)
	if err != nil {
		return nil, err
	}
	return id.IdentifyPayload(ctx, payload, station)
}
