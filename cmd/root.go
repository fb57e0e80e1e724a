package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "marketing360",
	Short: "Business directory research and enrichment toolkit",
	Long:  "Searches the web for businesses, classifies results with Claude, tracks every search and model decision, and manages background keyword and enrichment jobs.",
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
