package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskfleet",
	Short: "Multi-agent task router",
	Long: `Taskfleet routes free-form tasks to specialized agent teams.

Data questions go to a three-agent analysis team that queries a read-only
SQL warehouse; everything else goes to a general assistant. Execution is
wrapped in quota enforcement, retries, and automatic model fallback.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
