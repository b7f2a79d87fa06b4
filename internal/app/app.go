// Package app initializes and orchestrates the components of the docwarden
// application: configuration, storage, the documentation pipeline, and the
// HTTP server that fronts it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docwarden/docwarden/internal/agent"
	"github.com/docwarden/docwarden/internal/chunker"
	"github.com/docwarden/docwarden/internal/config"
	"github.com/docwarden/docwarden/internal/db"
	"github.com/docwarden/docwarden/internal/docgen"
	"github.com/docwarden/docwarden/internal/docstore"
	"github.com/docwarden/docwarden/internal/embedpipeline"
	"github.com/docwarden/docwarden/internal/identifier"
	"github.com/docwarden/docwarden/internal/jobcontroller"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/promptlib"
	"github.com/docwarden/docwarden/internal/scheduler"
	"github.com/docwarden/docwarden/internal/server"
	"github.com/docwarden/docwarden/internal/sourcehost"
	"github.com/docwarden/docwarden/internal/vectorindex"
)

// App holds every long-lived component the server and CLI entry points need.
type App struct {
	Controller *jobcontroller.Controller
	Agent      *agent.Agent
	Store      docstore.Store

	Cfg *config.Config

	logger *slog.Logger
	server *server.Server
}

// NewApp wires the documentation pipeline end to end: database, LLM
// gateway, vector index, and every pipeline stage, then builds
// the job controller and HTTP server on top of them. The returned cleanup
// closes the database connection; callers should defer it alongside Stop.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	logger.Info("initializing docwarden application",
		"llm_provider", cfg.AI.LLMProvider,
		"embedder_provider", cfg.AI.EmbedderProvider,
		"max_workers", cfg.Server.MaxWorkers,
	)

	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup := func() { dbCleanup() }

	store := docstore.NewStore(dbConn.DB)

	gateway, err := llmgateway.New(ctx, cfg, nil, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create llm gateway: %w", err)
	}

	index, err := newVectorIndex(ctx, cfg.Storage.QdrantHost)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	prompts, err := promptlib.New()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load prompt library: %w", err)
	}

	host := newSourceHost(cfg, logger)
	idr := identifier.New(nil, cfg.Pipeline.MaxFileSizeBytes)
	c := chunker.New(gateway.Tokenizer(), cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkMinimum)

	gen := docgen.New(store, gateway, prompts, cfg.Pipeline.TrimBudgetTokens, logger)
	sched := scheduler.New(store, gen, cfg.Pipeline.BatchSize, logger)
	embedder := embedpipeline.New(gateway, index, c, cfg.Pipeline.EmbedBatchMax, cfg.Pipeline.UpsertBatchMax, cfg.Pipeline.BatchSize, logger)

	controller := jobcontroller.New(host, idr, store, sched, gen, embedder, cfg.Server.MaxWorkers, logger)
	chatAgent := agent.New(gateway, index, prompts, logger, cfg.Pipeline.MaxChatSteps, cfg.Pipeline.SearchScoreFloor)

	httpServer := server.NewServer(cfg, controller, controller, chatAgent, logger)

	logger.Info("docwarden application initialized successfully")
	return &App{
		Controller: controller,
		Agent:      chatAgent,
		Store:      store,
		Cfg:        cfg,
		logger:     logger,
		server:     httpServer,
	}, cleanup, nil
}

// newSourceHost picks the GitHub App adapter when an app id is configured,
// falling back to the plain-git/local-clone adapter for CLI/local development.
func newSourceHost(cfg *config.Config, logger *slog.Logger) sourcehost.SourceHost {
	if cfg.SourceHost.GitHubAppID != 0 {
		return sourcehost.NewGitHubHost(cfg.SourceHost.GitHubAppID, cfg.SourceHost.GitHubPrivateKeyPath, cfg.SourceHost.GitHubToken)
	}
	return sourcehost.NewGitHost(cfg.SourceHost.ClonePath, cfg.SourceHost.GitHubToken, logger)
}

func newVectorIndex(ctx context.Context, hostPort string) (vectorindex.Index, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant host %q: %w", hostPort, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant port in %q: %w", hostPort, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", hostPort, err)
	}

	index := vectorindex.New(client)
	if err := index.EnsureCollection(ctx, embeddingVectorSize); err != nil {
		return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
	}
	return index, nil
}

// embeddingVectorSize matches the default embedder model's output
// dimensionality (nomic-embed-text); a different embedder model requires
// recreating the collection with its own size.
const embeddingVectorSize = 768

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting docwarden", "server_port", a.Cfg.Server.Port)
	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the job controller and HTTP server cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down docwarden services")

	a.Controller.Stop()

	var shutdownErr error
	if err := a.server.Stop(); err != nil {
		a.logger.Error("error during HTTP server shutdown", "error", err)
		shutdownErr = errors.Join(shutdownErr, err)
	}

	if shutdownErr != nil {
		a.logger.Error("docwarden stopped with errors", "error", shutdownErr)
	} else {
		a.logger.Info("docwarden stopped successfully")
	}
	return shutdownErr
}
