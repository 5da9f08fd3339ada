package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newswire/internal/config"
	"newswire/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	dbCmd.AddCommand(newDBResetCommand(ctx))
	return dbCmd
}

func newDBResetCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the database schema",
		Long:  "Deletes every source document, article, and stage log entry. This is the only sanctioned deletion path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("db reset deletes all pipeline data; re-run with --yes to confirm")
			}
			return ctx.withLock(func(cfg *config.Config, st *store.Store) error {
				if err := st.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database reset at %s\n", st.Path())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm the destructive reset")
	return cmd
}
