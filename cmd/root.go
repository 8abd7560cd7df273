package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldt-group/boq-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "boq-cli",
	Short: "BOQ extraction and pricing engine",
	Long:  "Reads electrical Bills of Quantities, normalizes line items, matches them against the master material catalog, validates pricing, and learns verified rates back into the catalog.",
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
