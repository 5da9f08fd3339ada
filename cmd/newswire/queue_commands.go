package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage failed pipeline rows",
	}
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	return queueCmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed rows to their stage-entry status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid article id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withLock(func(cfg *config.Config, st *store.Store) error {
				retried, err := st.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d row(s)\n", retried)
				return nil
			})
		},
	}
}
