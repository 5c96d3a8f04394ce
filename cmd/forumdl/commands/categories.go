package commands

import (
	"forumdl/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var categoriesRefresh *bool

func init() {
	categoriesRefresh = categoriesCmd.Flags().Bool("refresh", false, "Crawl the category tree again instead of using the cached one.")
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories [--refresh]",
	Short: "List the category tree of the catalog.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := getEnvironment(cmd.Context())

		categories, err := env.engine.Categories(cmd.Context(), catalog.GetOptions{
			ForceRefresh: *categoriesRefresh,
		})
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Category", "Url"})
		for _, category := range categories {
			label := category.Label
			if category.Parent != 0 {
				label = "  " + label
			}
			t.AppendRow(table.Row{category.Id, label, category.Url})
		}
		t.Render()
		return nil
	},
}
