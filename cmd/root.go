// Package cmd holds the CLI entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbl-labs/leadharvest/internal/config"
	"github.com/wbl-labs/leadharvest/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "leadharvest",
	Short: "Contract-job lead extraction from social feed searches",
	Long: `leadharvest schedules keyword searches across worker browser
sessions, extracts hiring contacts from the posts it finds, and reports a
reconciled summary per run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
}

// loadEnvironment reads config and builds the logger for a subcommand.
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
