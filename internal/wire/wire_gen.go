// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docwarden/docwarden/internal/app"
	"github.com/docwarden/docwarden/internal/config"
	"github.com/docwarden/docwarden/internal/logger"
)

// InitializeApp loads configuration, builds the logger, and wires the
// application graph via internal/app.NewApp. Every cmd/cli subcommand
// starts here.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := provideSlogLogger(cfg)

	application, cleanup, err := app.NewApp(ctx, cfg, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize application: %w", err)
	}

	return application, cleanup, nil
}

func provideSlogLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(cfg.Logging, nil)
}
