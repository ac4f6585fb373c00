package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prophetable",
	Short: "Prophetable - config-driven time-series forecasting",
	Long: `Prophetable Unified CLI

Reads a JSON config describing a time-series dataset and model
hyperparameters, fits a decomposable trend/seasonality/holiday model,
and forecasts a future horizon.

Usage:
  go run ./cmd/prophetable [command] --config config.json

Examples:
  go run ./cmd/prophetable run --config config.json
  go run ./cmd/prophetable prepare --config config.json
  go run ./cmd/prophetable predict --config config.json`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "pipeline config file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
