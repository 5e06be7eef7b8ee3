package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsalo/fieldscan/cmd/file"
	"github.com/tsalo/fieldscan/cmd/merge"
	"github.com/tsalo/fieldscan/cmd/scan"
	"github.com/tsalo/fieldscan/cmd/support"
	"github.com/tsalo/fieldscan/cmd/watch"
	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/logging"
	"github.com/tsalo/fieldscan/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fieldscan",
		Short:   "Batch bioacoustic analysis for field recordings",
		Version: settings.Version,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	subcommands := []*cobra.Command{
		scan.Command(settings),
		file.Command(settings),
		merge.Command(settings),
		watch.Command(settings),
		support.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags are bound into settings by now; the log handler and the
		// opt-in telemetry both depend on the final values.
		logging.Init(settings.Debug)

		if err := telemetry.InitSentry(settings); err != nil {
			logging.Warn("telemetry initialization failed", "error", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Output.Path, "output", "o", viper.GetString("output.path"), "Directory for per-file result CSVs")
	rootCmd.PersistentFlags().Float64Var(&settings.Analyzer.MinConfidence, "minconfidence", viper.GetFloat64("analyzer.minconfidence"), "Minimum confidence for reported detections, value between 0.0 and 1.0")
	rootCmd.PersistentFlags().IntVarP(&settings.Batch.Workers, "workers", "w", viper.GetInt("batch.workers"), "Number of concurrent analysis workers")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
