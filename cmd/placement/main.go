// Package main provides the placement CLI: the HTTP API server plus batch commands for
// jobs, round results and eligibility.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logJSON    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "placement",
	Short:         "Placement portal eligibility and round-progression engine",
	Long:          "Placement decides which candidates may apply to a job, notifies newly eligible candidates when rules change, and records round results in bulk.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
