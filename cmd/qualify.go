package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/acquisition-engine/internal/analysis"
)

var qualifyFlags struct {
	website        string
	network        string
	manualOverride bool
	strategicFit   bool
}

var qualifyCmd = &cobra.Command{
	Use:   "qualify <company name>",
	Short: "Run only the qualification gates (no scoring, nothing persisted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Engine.ComputeQualification(cmd.Context(), analysis.Request{
			Identity:   args[0],
			WebsiteURL: qualifyFlags.website,
			NetworkURL: qualifyFlags.network,
			Options: analysis.Options{
				ManualOverride: qualifyFlags.manualOverride,
				StrategicFit:   qualifyFlags.strategicFit,
			},
		})
		if err != nil {
			return err
		}

		return printJSON(out)
	},
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyFlags.website, "website", "", "company website URL")
	qualifyCmd.Flags().StringVar(&qualifyFlags.network, "network", "", "verified network profile URL")
	qualifyCmd.Flags().BoolVar(&qualifyFlags.manualOverride, "manual-override", false, "evaluate gate 2 even after a gate-1 failure")
	qualifyCmd.Flags().BoolVar(&qualifyFlags.strategicFit, "strategic-fit", false, "relax the revenue floor to the tuck-in threshold")
	rootCmd.AddCommand(qualifyCmd)
}
