package cmd

import (
	"github.com/jrschumacher/complyhub/internal/config"
	"github.com/jrschumacher/complyhub/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"start"},
	Short:   "Start the ComplyHub client server",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
