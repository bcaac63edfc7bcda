package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/acquisition-engine/internal/analysis"
)

var bulkFlags struct {
	workers      int
	forceRefresh bool
	strategicFit bool
}

// bulkCompany is one entry in the bulk input file.
type bulkCompany struct {
	Name    string `yaml:"name"`
	Website string `yaml:"website"`
	Network string `yaml:"network"`
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <companies.yaml>",
	Short: "Analyze a list of companies with bounded concurrency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read companies file")
		}
		var companies []bulkCompany
		if err := yaml.Unmarshal(raw, &companies); err != nil {
			return eris.Wrap(err, "parse companies file")
		}
		if len(companies) == 0 {
			return eris.New("companies file is empty")
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runner := analysis.NewBulk(env.Engine, cfg.Analysis.BulkQueueDepth, bulkFlags.workers)
		runner.Start(ctx)

		var results []analysis.BulkResult
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for res := range runner.Results() {
				results = append(results, res)
				zap.L().Info("bulk result",
					zap.String("company", res.Identity),
					zap.String("tier", string(res.Tier)),
					zap.String("error", res.Error),
				)
			}
		}()

		var rejected []string
		for _, c := range companies {
			status, _ := runner.Enqueue(analysis.Request{
				Identity:   c.Name,
				WebsiteURL: c.Website,
				NetworkURL: c.Network,
				Options: analysis.Options{
					ForceRefresh: bulkFlags.forceRefresh,
					StrategicFit: bulkFlags.strategicFit,
				},
			})
			if status == analysis.BulkRejected {
				rejected = append(rejected, c.Name)
			}
		}

		runner.Finish()
		wg.Wait()

		summary := struct {
			Results     []analysis.BulkResult `json:"results"`
			Rejected    []string              `json:"rejected,omitempty"`
			DeadLetters int                   `json:"dead_letters"`
		}{results, rejected, runner.DeadLetters().Len()}

		return printJSON(summary)
	},
}

func init() {
	bulkCmd.Flags().IntVar(&bulkFlags.workers, "workers", 4, "bulk worker count")
	bulkCmd.Flags().BoolVar(&bulkFlags.forceRefresh, "force-refresh", false, "recompute even when fresh snapshots exist")
	bulkCmd.Flags().BoolVar(&bulkFlags.strategicFit, "strategic-fit", false, "relax the revenue floor to the tuck-in threshold")
	rootCmd.AddCommand(bulkCmd)
}
