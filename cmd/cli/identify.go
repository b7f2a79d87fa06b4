package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwarden/docwarden/internal/wire"
)

var identifyOwnerID string

var identifyCmd = &cobra.Command{
	Use:   "identify <github_url>",
	Short: "Clones a repository and identifies which files need documentation",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		repo, err := application.Controller.Identify(ctx, identifyOwnerID, args[0])
		if err != nil {
			return fmt.Errorf("failed to identify repository: %w", err)
		}

		fmt.Printf("repository %s identified with %d documents pending\n", repo.ID, len(repo.Docs))
		for id, doc := range repo.Docs {
			fmt.Printf("  %s\t%s\t%s\n", id, doc.RelativePath, doc.Kind)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	identifyCmd.Flags().StringVar(&identifyOwnerID, "owner", "", "tenant owner id to attribute the repository to")
	_ = identifyCmd.MarkFlagRequired("owner")
}
