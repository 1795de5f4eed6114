package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/guidely/backend/internal/gamification"
)

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's progression stats",
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

		stats, err := e.engine().GetStats(context.Background(), userID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var incrementCmd = &cobra.Command{
	Use:   "increment <user-id> <stat-key> [delta]",
	Short: "Increment a stat and award any achievements it unlocks",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		delta := 1
		if len(args) == 3 {
			if delta, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid delta %q", args[2])
			}
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		change, err := e.engine().IncrementStat(context.Background(), userID, args[1], delta)
		if err != nil {
			return err
		}
		printChange(cmd, change)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <user-id> <stat-key> <value>",
	Short: "Set a stat to an absolute value and award any achievements it unlocks",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid value %q", args[2])
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		change, err := e.engine().SetStat(context.Background(), userID, args[1], value)
		if err != nil {
			return err
		}
		printChange(cmd, change)
		return nil
	},
}

func printChange(cmd *cobra.Command, change *gamification.StatChange) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "total XP %d, level %d\n", change.Stats.TotalXP, change.Stats.Level)
	for _, d := range change.Unlocked {
		fmt.Fprintf(out, "  unlocked %s (+%d XP)\n", d.Name, d.XPReward)
	}
}

func init() {
	statsCmd.AddCommand(incrementCmd, setCmd)
	rootCmd.AddCommand(statsCmd)
}
