package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidely/backend/internal/coach"
)

var withInsights bool

var rankCmd = &cobra.Command{
	Use:   "rank <user-id>",
	Short: "Show a user's rank and percentile by total XP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		rank, err := e.engine().ComputeRank(context.Background(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rank %d of %d (top %d%%)\n", rank.Rank, rank.TotalUsers, rank.Percentile)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <user-id>",
	Short: "Print a progress report, optionally with coaching insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()
		p, err := e.engine().GetProgress(ctx, userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, coach.BuildUserPrompt(p))

		if !withInsights {
			return nil
		}
		llm, model := coach.NewClient(e.cfg, e.log)
		ins, err := coach.New(llm, model).Insights(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", ins.Headline)
		for _, step := range ins.NextSteps {
			fmt.Fprintf(out, "  - %s\n", step)
		}
		if ins.Encouragement != "" {
			fmt.Fprintln(out, ins.Encouragement)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rankCmd, reportCmd)
	reportCmd.Flags().BoolVar(&withInsights, "insights", false, "Ask the coach for next steps")
}
