package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "events",
	Short:   "Show a single audit event with its payload",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}

		ev, err := trailClient.GetEvent(context.Background(), id)
		if err != nil {
			return fmt.Errorf("getting event %d: %w", id, err)
		}

		if jsonOutput {
			return printJSON(ev)
		}
		printEventDetail(ev)
		return nil
	},
}
