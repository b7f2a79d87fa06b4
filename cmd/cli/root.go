package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docwarden-cli",
	Short: "docwarden-cli drives the docwarden documentation pipeline",
	Long:  `A command-line interface for identifying, generating, and querying documentation without going through the HTTP API.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
}
