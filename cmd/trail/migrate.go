package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/audittrail/internal/config"
	"github.com/groblegark/audittrail/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: "data",
	Short:   "Apply database migrations",
	Long:    `Apply database migrations to the database named by AUDIT_DB_URL.`,
	// Skip the client setup; migrate talks to postgres directly.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		st.Close()

		fmt.Println("migrations applied")
		return nil
	},
}
