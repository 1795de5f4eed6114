package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guidely/backend/internal/gamification"
)

var catalogJSON bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the built-in achievement catalog to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		svc := e.engine()
		if err := svc.SeedCatalog(context.Background()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d achievements\n", svc.Catalog().Len())
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the built-in achievement catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs := gamification.DefaultCatalog().All()
		out := cmd.OutOrStdout()

		if catalogJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		}

		w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTIER\tRARITY\tREQUIREMENT\tXP")
		for _, d := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s >= %d\t%d\n",
				d.Name, d.Tier, d.Rarity, d.Requirement.Type, d.Requirement.Value, d.XPReward)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print JSON instead of a table")
}
