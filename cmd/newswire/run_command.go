package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/pipeline"
	"newswire/internal/stage"
	"newswire/internal/store"
)

type runFlags struct {
	stage     string
	limit     int
	threshold float64
	site      string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stage, "stage", pipeline.StageFull, "Stage to run, or 'full' for the whole pipeline")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Cap rows per stage (0 uses the configured limit)")
	cmd.Flags().Float64Var(&f.threshold, "significance-threshold", 0, "Override the WRITE decision threshold")
	cmd.Flags().StringVar(&f.site, "site", "", "Restrict ingestion to one configured source")
}

func (f *runFlags) options() pipeline.Options {
	return pipeline.Options{
		Stage:     f.stage,
		Limit:     f.limit,
		Threshold: f.threshold,
		Site:      f.site,
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one stage or the full pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withLock(func(cfg *config.Config, st *store.Store) error {
				orchestrator := pipeline.New(cfg, st, logger)
				results, err := orchestrator.Run(cmd.Context(), flags.options())
				printResults(cmd, results)
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDrainCommand(ctx *commandContext) *cobra.Command {
	flags := &runFlags{}
	var maxIterations int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Re-run the pipeline until a pass attempts zero rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			return ctx.withLock(func(cfg *config.Config, st *store.Store) error {
				orchestrator := pipeline.New(cfg, st, logger)
				for iteration := 1; ; iteration++ {
					results, err := orchestrator.Run(cmd.Context(), flags.options())
					printResults(cmd, results)
					if err != nil {
						return err
					}

					attempted := 0
					for _, result := range results {
						attempted += result.Attempted
					}
					if attempted == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "Drained after %d pass(es)\n", iteration)
						return nil
					}
					if maxIterations > 0 && iteration >= maxIterations {
						fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d pass(es) with work remaining\n", iteration)
						return nil
					}
					if delay > 0 {
						select {
						case <-time.After(delay):
						case <-cmd.Context().Done():
							return cmd.Context().Err()
						}
					}
				}
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 10, "Stop after this many passes (0 for unlimited)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Pause between passes")
	return cmd
}

func printResults(cmd *cobra.Command, results []stage.Result) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Stage,
			fmt.Sprintf("%d", result.Attempted),
			fmt.Sprintf("%d", result.Succeeded),
			fmt.Sprintf("%d", result.Failed),
		})
	}
	table := renderTable(
		[]string{"Stage", "Attempted", "Succeeded", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
