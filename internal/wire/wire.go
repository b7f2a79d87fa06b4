//go:build wireinject
// +build wireinject

// Package wire assembles the CLI entry point's application graph. The CLI
// needs its own bootstrap (config + logger) ahead of internal/app.NewApp,
// unlike cmd/server which already does that inline, so InitializeApp exists
// as the shared starting point for every cmd/cli subcommand.
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/docwarden/docwarden/internal/app"
	"github.com/docwarden/docwarden/internal/config"
)

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		config.LoadConfig,
		provideSlogLogger,
		app.NewApp,
	)
	return &app.App{}, nil, nil
}
