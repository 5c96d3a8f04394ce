package commands

import (
	"fmt"
	"forumdl/internal/catalog"

	"github.com/spf13/cobra"
)

var (
	listFirstPage *bool
	listRefresh   *bool
	listSort      *string
	listOrder     *string
)

func init() {
	listFirstPage = listCmd.Flags().Bool("first-page", false, "Only fetch the first page of the listing.")
	listRefresh = listCmd.Flags().Bool("refresh", false, "Replace the cached records of the category instead of merging into them.")
	listSort = listCmd.Flags().String("sort", string(catalog.SORT_NAME), "Sort key: name, date, updated, downloads or views.")
	listOrder = listCmd.Flags().String("order", string(catalog.ORDER_ASC), "Sort order: asc or desc.")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list <category> [--first-page] [--refresh] [--sort <key>] [--order <asc|desc>]",
	Short: "Fetch the listing of a category into the cache and print it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := getEnvironment(cmd.Context())

		ref, err := catalog.ParseCategoryRef(args[0])
		if err != nil {
			return err
		}
		sortKey, ok := catalog.ParseSortKey(*listSort)
		if !ok {
			return fmt.Errorf("%w: unknown sort key %q", catalog.ErrInvalidArgument, *listSort)
		}
		sortOrder, ok := catalog.ParseSortOrder(*listOrder)
		if !ok {
			return fmt.Errorf("%w: unknown sort order %q", catalog.ErrInvalidArgument, *listOrder)
		}

		records, err := env.engine.Fetch(cmd.Context(), ref, catalog.FetchOptions{
			ListingOptions: catalog.ListingOptions{
				SortKey:   sortKey,
				SortOrder: sortOrder,
				PageSize:  env.cfg.PageSize,
			},
			FirstPageOnly: *listFirstPage,
			ForceRefresh:  *listRefresh,
		})
		if err != nil {
			return err
		}

		recordTable(records).Render()
		return nil
	},
}
