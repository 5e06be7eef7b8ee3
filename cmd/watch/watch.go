package watch

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsalo/fieldscan/internal/analysis"
	"github.com/tsalo/fieldscan/internal/conf"
)

// Command creates the watch command for continuous analysis of incoming
// recordings.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the input directory and analyze new recordings",
		Long: "Watch the input directory tree and analyze each new audio file once " +
			"its size has settled, so recordings still being copied are left alone. " +
			"Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.WatchAnalysis(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the watch command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVarP(&settings.Input.Path, "input", "i", viper.GetString("input.path"), "Directory to watch for audio files")
	cmd.Flags().DurationVar(&settings.Watch.SettleTime, "settletime", viper.GetDuration("watch.settletime"), "How long a file's size must stay unchanged before analysis")
	cmd.Flags().DurationVar(&settings.Watch.Cooldown, "cooldown", viper.GetDuration("watch.cooldown"), "Suppress re-analysis of the same path within this window")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
