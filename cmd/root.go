package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "acquisition-engine",
	Short: "Lead qualification and multi-source scoring engine",
	Long: "Collects company signals from multiple sources, reconciles them with confidence weighting, " +
		"runs deterministic qualification gates, scores acquisition dimensions via Claude, and persists " +
		"immutable tiered snapshots.",
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
