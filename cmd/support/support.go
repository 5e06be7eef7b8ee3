package support

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/diagnostics"
)

// Command creates the support command for collecting a troubleshooting
// bundle.
func Command(settings *conf.Settings) *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "support",
		Short: "Collect system diagnostics for troubleshooting",
		Long: "Write a support bundle containing system information, the active " +
			"configuration with secrets masked, and recent service logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Collecting support data...")

			bundlePath, err := diagnostics.WriteBundle(settings, destDir)
			if err != nil {
				return err
			}

			fmt.Printf("Support bundle written to %s\n", bundlePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&destDir, "dir", ".", "Directory to write the bundle into")

	return cmd
}
