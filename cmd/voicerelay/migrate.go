package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := os.Getenv("VOICERELAY_DATABASE_URL")
			if dsn == "" {
				return fmt.Errorf("VOICERELAY_DATABASE_URL must be set")
			}
			if err := billing.Migrate(dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
