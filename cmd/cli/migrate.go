package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwarden/docwarden/internal/config"
	"github.com/docwarden/docwarden/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Connects to the database and applies pending migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		_, cleanup, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		defer cleanup()

		fmt.Println("migrations applied")
		return nil
	},
}
