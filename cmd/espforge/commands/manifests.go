package commands

import (
	"fmt"
	"strings"

	"github.com/jhunt/go-table"
	"github.com/spf13/cobra"

	"github.com/espforge/espforge/pkg/manifest"
)

func newManifestsCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "manifests",
		Short: "List the component, global and device manifests",
		Example: `  espforge manifests
  espforge manifests --category devices
  espforge manifests --manifests ./my-manifests`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			cat := manifest.Category(category)
			if cat != "" && !validCategory(cat) {
				names := make([]string, len(manifest.Categories))
				for i, c := range manifest.Categories {
					names[i] = string(c)
				}
				return fmt.Errorf("unknown category '%s' (expected one of %s)", category, strings.Join(names, ", "))
			}

			list := a.catalog.List(cat)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tbl := table.NewTable("Name", "Category", "Parameters", "Methods", "Requires")
			for _, m := range list {
				tbl.Row(m, m.Name, string(m.Category), parameterSummary(m), strings.Join(m.MethodNames(), ", "), strings.Join(m.Requires, ", "))
			}
			tbl.Output(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list this category (components, globals, devices)")

	return cmd
}

func validCategory(c manifest.Category) bool {
	for _, known := range manifest.Categories {
		if c == known {
			return true
		}
	}
	return false
}

// parameterSummary renders parameters as name:Type, required ones starred.
func parameterSummary(m *manifest.Manifest) string {
	parts := make([]string, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		s := p.Name + ":" + string(p.Type)
		if p.Required {
			s += "*"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
