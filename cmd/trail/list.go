package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/client"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "events",
	Short:   "List audit events",
	Long: `List audit events within a time window, newest first.

Absent filters fall back to the server defaults: the full log up to
now, all actors, all actions. The first request after a restart may
pay the snapshot build.`,
	Example: `  trail list
  trail list --from 1700000000 --to 1700086400
  trail list --actor 42 --action UPDATE --page 2 --page-size 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.ListEventsRequest{}

		if cmd.Flags().Changed("from") {
			v, _ := cmd.Flags().GetInt64("from")
			req.FromTS = &v
		}
		if cmd.Flags().Changed("to") {
			v, _ := cmd.Flags().GetInt64("to")
			req.ToTS = &v
		}
		if cmd.Flags().Changed("actor") {
			v, _ := cmd.Flags().GetInt64("actor")
			req.ActorID = &v
		}
		req.Action, _ = cmd.Flags().GetString("action")
		req.Page, _ = cmd.Flags().GetInt("page")
		req.PageSize, _ = cmd.Flags().GetInt("page-size")

		page, err := trailClient.ListEvents(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}

		if jsonOutput {
			return printJSON(page)
		}
		printEventListTable(page)
		return nil
	},
}

func init() {
	listCmd.Flags().Int64("from", 0, "window start (epoch seconds, default: 24h ago)")
	listCmd.Flags().Int64("to", 0, "window end (epoch seconds, default: now)")
	listCmd.Flags().Int64("actor", 0, "filter by actor id")
	listCmd.Flags().String("action", "", "filter by action (LOGIN, LOGOUT, UPDATE, DELETE, CREATE, EXPORT)")
	listCmd.Flags().Int("page", 1, "page number (1-based)")
	listCmd.Flags().Int("page-size", 50, "page size")
}
