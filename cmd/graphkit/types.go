package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/taxonomy"
)

type typeRow struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Super       string `json:"super,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Description string `json:"description,omitempty"`
}

func newTypesCmd(a *app) *cobra.Command {
	var (
		category string
		match    string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the semantic types of the catalog",
		Long: `List the vertex and transaction types known to the catalog. With --match,
only the types whose patterns accept the given text are listed, most
specific first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories := []taxonomy.Category{taxonomy.CategoryVertex, taxonomy.CategoryTransaction}
			switch category {
			case "":
			case string(taxonomy.CategoryVertex), string(taxonomy.CategoryTransaction):
				categories = []taxonomy.Category{taxonomy.Category(category)}
			default:
				return plugin.NewValidationError("graphkit.types",
					fmt.Errorf("unknown category %q", category))
			}

			var rows []typeRow
			for _, c := range categories {
				types := a.kit.Catalog().Types(c)
				if match != "" {
					types = a.kit.Catalog().Match(c, match)
				}
				for _, t := range types {
					rows = append(rows, typeRow{
						Name:        t.Name,
						Category:    string(t.Category),
						Super:       t.Super().String(),
						Priority:    t.Priority,
						Description: t.Description,
					})
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tSUPER\tDESCRIPTION")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Category, r.Super, r.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "vertex or transaction (default both)")
	cmd.Flags().StringVar(&match, "match", "", "only list types matching this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
