package batch

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/imaging"
)

// Command creates the batch command
func Command(rt *app.Runtime) *cobra.Command {
	var (
		station   string
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "batch [dir|files...]",
		Short: "Identify many images sequentially",
		Long: `Identify every JPEG, PNG and WebP image in the given directories and files,
one at a time, printing one JSON line per image. Images are paced by batch.pacing
and retryable model failures are retried batch.retries times.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := rt.Context()
			if err != nil {
				return err
			}
			files, err := Expand(args, recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no image files found")
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			settings := ctx.Settings
			summary, err := Run(runCtx, ctx.Pipeline, files, Options{
				Station:    station,
				Pacing:     settings.Batch.Pacing,
				Retries:    settings.Batch.Retries,
				RetryDelay: settings.Batch.RetryDelay,
				Normalizer: imaging.Normalizer{MaxBytes: settings.Imaging.MaxBytes},
			}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&station, "station", "", "Camera station id applied to every image")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recursively include subdirectories")

	return cmd
}
