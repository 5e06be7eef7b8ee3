package merge

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/merge"
)

// Command creates the merge command for compiling the master output from
// per-file results already on disk.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge per-file results into the master CSV",
		Long: "Scan the output directory for per-file result CSVs and concatenate " +
			"them into one master file. Useful after batches run with automerge " +
			"disabled, or to rebuild a lost master.",
		RunE: func(cmd *cobra.Command, args []string) error {
			master, stats, err := merge.Compile(settings.Output.Path, settings.Output.MasterName)
			if err != nil {
				return err
			}
			fmt.Printf("Merged %d rows from %d files into %s", stats.Rows, stats.Sources, master)
			if stats.Skipped > 0 {
				fmt.Printf(" (%d unreadable files skipped)", stats.Skipped)
			}
			fmt.Println()
			return nil
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the merge command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Output.MasterName, "mastername", viper.GetString("output.mastername"), "File name of the merged master CSV")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
