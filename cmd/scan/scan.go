package scan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsalo/fieldscan/internal/analysis"
	"github.com/tsalo/fieldscan/internal/conf"
)

// Command creates the scan command for batch analysis of a directory tree.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze every audio file under the input directory",
		Long: "Scan the input directory recursively for supported audio files, " +
			"run the configured analyzer over them, and write per-file result CSVs " +
			"plus the merged master output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.BatchAnalysis(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the scan command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVarP(&settings.Input.Path, "input", "i", viper.GetString("input.path"), "Directory to scan for audio files")
	cmd.Flags().StringVar(&settings.Input.FolderPattern, "pattern", viper.GetString("input.folderpattern"), "Glob matched against subdirectory names, e.g. \"site-*\"")
	cmd.Flags().BoolVar(&settings.Input.Validate, "validate", viper.GetBool("input.validate"), "Probe audio headers before dispatching files")
	cmd.Flags().BoolVar(&settings.Output.AutoMerge, "automerge", viper.GetBool("output.automerge"), "Compile the master CSV after the batch")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
