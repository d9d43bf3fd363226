// Package commands implements jobweave's CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobweave",
		Short: "jobweave - in-process cron-style job runner",
		Long: `jobweave runs a process that fires user-declared jobs on their
schedules, tracks in-flight runs, and projects state to a read-only
dashboard.

Examples:
  jobweave serve --config ./jobweave.yaml
  jobweave health`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newHealthCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "jobweave.yaml", "path to the worker config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
