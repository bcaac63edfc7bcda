package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/acquisition-engine/internal/model"
)

var overrideFlags struct {
	reason string
	actor  string
}

var overrideCmd = &cobra.Command{
	Use:   "override <snapshot-key> <tier>",
	Short: "Manually override the tier on a snapshot (audited)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := model.Tier(args[1])
		if !model.ValidTier(target) {
			return eris.Errorf("unknown tier %q (VIP, HIGH, MEDIUM, LOW, DISQUALIFIED)", args[1])
		}

		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Engine.OverrideTier(cmd.Context(), args[0], target,
			overrideFlags.reason, overrideFlags.actor)
		if err != nil {
			return err
		}

		return printJSON(entry)
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <snapshot-key>",
	Short: "Show the tier override audit trail for a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		trail, err := env.Engine.AuditTrail(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		return printJSON(trail)
	},
}

func init() {
	overrideCmd.Flags().StringVar(&overrideFlags.reason, "reason", "", "override justification (required)")
	overrideCmd.Flags().StringVar(&overrideFlags.actor, "actor", "", "person recording the override (required)")
	overrideCmd.MarkFlagRequired("reason")
	overrideCmd.MarkFlagRequired("actor")
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(auditCmd)
}
