package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"source documents", fmt.Sprintf("%d", stats.Documents)},
				}
				for _, status := range []store.ReviewStatus{
					store.ReviewJudged,
					store.ReviewGenerated,
					store.ReviewRevised,
					store.ReviewSucceeded,
					store.ReviewFailed,
				} {
					rows = append(rows, []string{"review " + string(status), fmt.Sprintf("%d", stats.ReviewCounts[status])})
				}
				rows = append(rows,
					[]string{"published", fmt.Sprintf("%d", stats.Published)},
					[]string{"publish failed", fmt.Sprintf("%d", stats.PublishFailed)},
					[]string{"breaking", fmt.Sprintf("%d", stats.Breaking)},
					[]string{"featured", fmt.Sprintf("%d", stats.Featured)},
					[]string{"needs review", fmt.Sprintf("%d", stats.NeedsReview)},
				)

				table := renderTable([]string{"Rows", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}
