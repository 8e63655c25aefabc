// Command landmaintain keeps a long-lived fork aligned with its upstream
// parent while preserving the repository-specific override files that must
// survive each synchronization.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "landmaintain",
		Short:         "Synchronize a fork with its upstream parent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
