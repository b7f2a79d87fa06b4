package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwarden/docwarden/internal/wire"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <repo_id> <query>",
	Short: "Runs a semantic search over a repository's embedded chunks",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		hits, err := application.Agent.Search(ctx, args[0], args[1], searchTopK)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		for _, hit := range hits {
			fmt.Printf("[%.3f] %s\n%s\n\n", hit.Score, hit.DocID, hit.Content)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "number of chunks to return")
}
