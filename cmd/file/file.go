package file

import (
	"github.com/spf13/cobra"

	"github.com/tsalo/fieldscan/internal/analysis"
	"github.com/tsalo/fieldscan/internal/conf"
)

// Command creates the file command for analyzing a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "file [recording.wav]",
		Short: "Analyze a single audio file",
		Long:  "Analyze one audio file and write its detections to a per-file result CSV.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.FileAnalysis(cmd.Context(), settings, args[0], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print audio stream parameters before analysis")

	return cmd
}
