package commands

import (
	"fmt"
	"forumdl/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var searchSuggestions *int

func init() {
	searchSuggestions = searchCmd.Flags().Int("suggestions", 5, "How many similar titles to show when nothing matches.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <category> <query>",
	Short: "Search the cached records of a category, fetching them first if needed.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := getEnvironment(cmd.Context())

		ref, err := catalog.ParseCategoryRef(args[0])
		if err != nil {
			return err
		}
		records, err := env.engine.Search(cmd.Context(), ref, args[1])
		if err != nil {
			return err
		}
		if len(records) > 0 {
			recordTable(records).Render()
			return nil
		}

		suggestions, err := env.engine.Suggest(cmd.Context(), ref, args[1], *searchSuggestions)
		if err != nil {
			return err
		}
		fmt.Printf("Nothing matches %q.\n", args[1])
		if len(suggestions) == 0 {
			return nil
		}

		fmt.Println("Similar titles:")
		t := newTable()
		t.AppendHeader(table.Row{"Id", "Title", "Similarity"})
		for _, suggestion := range suggestions {
			t.AppendRow(table.Row{
				suggestion.Record.Id,
				suggestion.Record.Title,
				fmt.Sprintf("%.2f", suggestion.Similarity),
			})
		}
		t.Render()
		return nil
	},
}
