package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/analysis"
)

var analyzeFlags struct {
	website        string
	network        string
	forceRefresh   bool
	skipFiltering  bool
	manualOverride bool
	strategicFit   bool
	staleness      time.Duration
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <company name>",
	Short: "Run the full analysis pipeline for one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Engine.GetOrCompute(cmd.Context(), analysis.Request{
			Identity:   args[0],
			WebsiteURL: analyzeFlags.website,
			NetworkURL: analyzeFlags.network,
			Options: analysis.Options{
				ForceRefresh:   analyzeFlags.forceRefresh,
				SkipFiltering:  analyzeFlags.skipFiltering,
				ManualOverride: analyzeFlags.manualOverride,
				StrategicFit:   analyzeFlags.strategicFit,
				Staleness:      analyzeFlags.staleness,
			},
		})
		if err != nil && !errors.Is(err, analysis.ErrPersistExhausted) {
			return err
		}
		if err != nil {
			zap.L().Warn("snapshot not persisted", zap.Error(err))
		}

		return printJSON(snap)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.website, "website", "", "company website URL")
	analyzeCmd.Flags().StringVar(&analyzeFlags.network, "network", "", "verified network profile URL")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.forceRefresh, "force-refresh", false, "recompute even when a fresh snapshot exists")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.skipFiltering, "skip-filtering", false, "bypass both qualification gates")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.manualOverride, "manual-override", false, "evaluate gate 2 even after a gate-1 failure")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.strategicFit, "strategic-fit", false, "relax the revenue floor to the tuck-in threshold")
	analyzeCmd.Flags().DurationVar(&analyzeFlags.staleness, "staleness", 0, "freshness window override (e.g. 6h)")
	rootCmd.AddCommand(analyzeCmd)
}
