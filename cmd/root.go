package cmd

import (
	"os"

	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "complyhub",
	Short: "ComplyHub client CLI",
	Long:  `complyhub serves the account screens and bundles the client security utilities.`,

	SilenceUsage: true,
}

// Execute runs the root command with c as the loaded configuration.
func Execute(c *config.Config) {
	cfg = c
	logger.Debug("Starting CLI", "env", cfg.AppEnv)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
