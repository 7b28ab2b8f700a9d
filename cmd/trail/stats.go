package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "events",
	Short:   "Show snapshot statistics",
	Long: `Show statistics about the active snapshot: row count, distinct
actors and actions, and when the snapshot was built.

Fails with 503 until the first list or show request has built the
snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := trailClient.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		if jsonOutput {
			return printJSON(stats)
		}
		printStatsTable(stats)
		return nil
	},
}
