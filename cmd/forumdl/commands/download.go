package commands

import (
	"fmt"
	"forumdl/internal/catalog"
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	downloadFile *string
	downloadDest *string
	downloadAll  *bool
)

func init() {
	downloadFile = downloadCmd.Flags().String("file", "", "The file to pick when a record offers several.")
	downloadDest = downloadCmd.Flags().String("dest", "", "The folder to save into, defaults to download_dir from the config.")
	downloadAll = downloadCmd.Flags().Bool("all", false, "Download every record matching the query instead of the first one.")
	rootCmd.AddCommand(downloadCmd)
}

func findRecord(cmd *cobra.Command, engine *catalog.Engine, ref catalog.CategoryRef, query string) (catalog.Record, error) {
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		record, found, err := engine.FindById(cmd.Context(), ref, id)
		if err != nil {
			return catalog.Record{}, err
		}
		if found {
			return record, nil
		}
	}

	record, found, err := engine.FindOne(cmd.Context(), ref, query)
	if err != nil {
		return catalog.Record{}, err
	}
	if !found {
		return catalog.Record{}, fmt.Errorf("%w: nothing matches %q", catalog.ErrInvalidArgument, query)
	}
	return record, nil
}

var downloadCmd = &cobra.Command{
	Use:   "download <category> <query|id> [--file <name>] [--dest <folder>] [--all]",
	Short: "Download the record matching the query (or every one of them with --all).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := getEnvironment(cmd.Context())

		ref, err := catalog.ParseCategoryRef(args[0])
		if err != nil {
			return err
		}
		opts := catalog.ResolveOptions{
			Filename:   *downloadFile,
			DestFolder: *downloadDest,
		}
		if opts.DestFolder == "" {
			opts.DestFolder = env.cfg.DownloadDir
		}

		if !*downloadAll {
			record, err := findRecord(cmd, env.engine, ref, args[1])
			if err != nil {
				return err
			}
			resolution, err := env.engine.Download(cmd.Context(), record, opts)
			if err != nil {
				return err
			}
			printResolutions([]catalog.BatchResult{{Record: record, Resolution: resolution}})
			return nil
		}

		records, err := env.engine.Search(cmd.Context(), ref, args[1])
		if err != nil {
			return err
		}
		slog.Info("downloading matches", "count", len(records))
		results, err := env.engine.DownloadAll(cmd.Context(), records, opts)
		printResolutions(results)
		return err
	},
}

func printResolutions(results []catalog.BatchResult) {
	t := newTable()
	t.AppendHeader(table.Row{"Id", "Title", "Result", "Bytes", "Time"})
	for _, result := range results {
		status := result.Resolution.Path
		switch {
		case result.Err != nil:
			status = result.Err.Error()
		case result.Resolution.Skipped:
			status = fmt.Sprintf("%s (already there)", result.Resolution.Path)
		}
		t.AppendRow(table.Row{
			result.Record.Id,
			result.Record.Title,
			status,
			result.Resolution.Bytes,
			result.Resolution.Elapsed.String(),
		})
	}
	t.Render()
}
