package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidely/backend/internal/database"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if rollbackSteps > 0 {
			if err := database.Rollback(e.db, rollbackSteps); err != nil {
				return err
			}
		} else if err := database.Migrate(e.db); err != nil {
			return err
		}

		v, dirty, err := database.Version(e.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().IntVar(&rollbackSteps, "down", 0, "Roll back this many migrations instead of migrating up")
}
