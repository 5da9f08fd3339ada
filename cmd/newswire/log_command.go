package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/store"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent stage activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				entries, err := st.RecentStageLog(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stage activity recorded.")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					article := ""
					if entry.ArticleID > 0 {
						article = strconv.FormatInt(entry.ArticleID, 10)
					}
					rows = append(rows, []string{
						entry.CreatedAt.Format("2006-01-02 15:04:05"),
						entry.Stage,
						article,
						entry.Outcome,
						entry.Provider,
						fmt.Sprintf("%dms", entry.LatencyMS),
						entry.Detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Time", "Stage", "Article", "Outcome", "Provider", "Latency", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Newest entries to show")
	return cmd
}
