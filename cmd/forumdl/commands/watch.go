package commands

import (
	"context"
	"forumdl/internal/catalog"
	"forumdl/internal/components/chrono"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	watchCron *string
	watchNow  *bool
)

func init() {
	watchCron = watchCmd.Flags().String("cron", "@every 1h", "When to refresh, in cron syntax.")
	watchNow = watchCmd.Flags().Bool("now", false, "Also refresh once right away.")
	rootCmd.AddCommand(watchCmd)
}

// refresh fetches the newest listing page of each category and logs the records that were not
// cached before.
func refresh(ctx context.Context, engine *catalog.Engine, refs []catalog.CategoryRef, pageSize int) {
	for _, ref := range refs {
		added, err := engine.Refresh(ctx, ref, catalog.ListingOptions{
			SortKey:   catalog.SORT_DATE,
			SortOrder: catalog.ORDER_DESC,
			PageSize:  pageSize,
		})
		if err != nil {
			slog.Error("refresh category", "err", err.Error())
			continue
		}
		for _, record := range added {
			slog.Info("new record", "category", record.Category, "id", record.Id, "title", record.Title)
		}
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch <category...> [--cron <spec>] [--now]",
	Short: "Periodically refresh the first listing page of categories and report new records.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := getEnvironment(cmd.Context())
		ctx := cmd.Context()

		refs := make([]catalog.CategoryRef, len(args))
		for i, arg := range args {
			ref, err := catalog.ParseCategoryRef(arg)
			if err != nil {
				return err
			}
			refs[i] = ref
		}

		if *watchNow {
			refresh(ctx, env.engine, refs, env.cfg.PageSize)
		}

		cron := chrono.NewStandardCron(env.tel)
		err := cron.Cron(*watchCron, func() {
			refresh(ctx, env.engine, refs, env.cfg.PageSize)
		})
		if err != nil {
			<-cron.Stop().Done()
			return err
		}
		slog.Info("watching", "categories", len(refs), "cron", *watchCron)

		<-ctx.Done()
		<-cron.Stop().Done()
		return nil
	},
}
