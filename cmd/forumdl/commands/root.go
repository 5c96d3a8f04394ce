package commands

import (
	"context"
	"fmt"
	"forumdl/internal/components/telemetry"
	"forumdl/pkg/configutil"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:          "forumdl",
	Short:        "forumdl indexes the downloads section of a forum and fetches files from it.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(os.Stderr, *verbose)

		cfg, err := configutil.ReadConfig[Config](*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		env, err := newEnvironment(cmd.Context(), cfg, *verbose)
		if err != nil {
			return err
		}
		cmd.SetContext(withEnvironment(cmd.Context(), env))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return getEnvironment(cmd.Context()).Close()
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "forumdl.json5", "The config file to read, a .local variant next to it overrides its values.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and http transcripts.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
