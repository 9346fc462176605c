// Package species implements the species listing command.
package species

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/trapcam/cmd/output"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// Command creates the species command
func Command(rt *app.Runtime) *cobra.Command {
	var (
		category string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "species",
		Short: "List the species the identifier can report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := taxonomy.Load(rt.Settings.Taxonomy.Path)
			if err != nil {
				return err
			}
			list, err := Filter(registry, category)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, list)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list one category: mammal, bird or reptile")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatYAML, "Output format: yaml, json")

	return cmd
}

// Filter returns all species, or one category of them
func Filter(registry *taxonomy.Registry, category string) ([]taxonomy.Species, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return registry.All(), nil
	}
	c := taxonomy.Category(category)
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %q (expected mammal, bird or reptile)", category)
	}
	return registry.ByCategory(c), nil
}
