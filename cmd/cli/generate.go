package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwarden/docwarden/internal/wire"
)

var generateCmd = &cobra.Command{
	Use:   "generate <repo_id>",
	Short: "Generates documentation for every pending document in a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := application.Controller.GenerateRepo(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to start generation: %w", err)
		}

		fmt.Printf("generation started for repository %s, job %s\n", args[0], jobID)
		return nil
	},
}
