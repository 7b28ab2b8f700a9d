package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	GroupID: "system",
	Short:   "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := trailClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(map[string]string{"status": status}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		} else {
			fmt.Printf("Health: %s\n", ui.RenderStatus(status))
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}
