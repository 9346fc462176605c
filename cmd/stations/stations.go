// Package stations implements the camera station listing command.
package stations

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/trapcam/cmd/output"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// Command creates the stations command
func Command(rt *app.Runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List the known camera stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stations, err := taxonomy.LoadStations(rt.Settings.Taxonomy.StationsPath)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, stations.All())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", output.FormatYAML, "Output format: yaml, json")

	return cmd
}
