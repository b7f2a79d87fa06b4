package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docwarden/docwarden/internal/wire"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat <repo_id> <question>",
	Short: "Asks a question about a repository and prints the agent's answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		result, err := application.Agent.Chat(ctx, args[0], args[1], chatTopK)
		if err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}

		if result.Fallback {
			fmt.Println("(answered without retrieval)")
		}
		fmt.Println(result.Answer)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	chatCmd.Flags().IntVar(&chatTopK, "top-k", 5, "number of chunks to retrieve per step")
}
