package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dev-urban/mailchimp-automation/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mailchimp-automation",
	Short: "Similar-listings Mailchimp campaign automation",
	Long:  "Matches each lead's property to similar listings by distance and price, uploads personalized merge fields to Mailchimp, and assembles a segmented campaign.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
