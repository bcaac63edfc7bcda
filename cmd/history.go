package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/acquisition-engine/internal/store"
)

var historyFlags struct {
	website string
	network string
	limit   int
	from    string
	to      string
}

var historyCmd = &cobra.Command{
	Use:   "history <company name>",
	Short: "List analysis snapshots for a company, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.ListFilter{Limit: historyFlags.limit}
		var err error
		if filter.From, err = parseDate(historyFlags.from); err != nil {
			return err
		}
		if filter.To, err = parseDate(historyFlags.to); err != nil {
			return err
		}

		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		summaries, err := env.Engine.History(cmd.Context(), args[0],
			historyFlags.website, historyFlags.network, filter)
		if err != nil {
			return err
		}

		return printJSON(summaries)
	},
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", s)
	}
	return t, nil
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.website, "website", "", "company website URL")
	historyCmd.Flags().StringVar(&historyFlags.network, "network", "", "verified network profile URL")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum snapshots to list")
	historyCmd.Flags().StringVar(&historyFlags.from, "from", "", "earliest snapshot date (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyFlags.to, "to", "", "latest snapshot date (YYYY-MM-DD)")
	rootCmd.AddCommand(historyCmd)
}
