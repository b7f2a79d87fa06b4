package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docwarden/docwarden/internal/config"
	"github.com/docwarden/docwarden/internal/server/handler"
)

// NewRouter creates and configures the HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, repos handler.RepoController, fileDocs handler.FileDocController, search handler.Searcher, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Auth(cfg.Server.SharedSecret))

		repoHandler := handler.NewRepoHandler(repos, search, ownerIDFromContext, cfg.Pipeline.SearchTopK, logger)
		r.Post("/repos", repoHandler.Create)
		r.Post("/repos/identify", repoHandler.Identify)
		r.Post("/repos/{repo_id}/generate", repoHandler.Generate)
		r.Get("/repos", repoHandler.List)
		r.Get("/repos/{repo_id}", repoHandler.Get)
		r.Delete("/repos/{repo_id}", repoHandler.Delete)
		r.Get("/repos/{repo_id}/{doc_id}", repoHandler.GetDocument)
		r.Get("/repos/{repo_id}/search", repoHandler.Search)

		fileDocHandler := handler.NewFileDocHandler(fileDocs, ownerIDFromContext, logger)
		r.Post("/file-docs", fileDocHandler.Create)
		r.Get("/file-docs/{doc_id}", fileDocHandler.Get)
		r.Put("/file-docs/{doc_id}", fileDocHandler.Regenerate)
		r.Delete("/file-docs/{doc_id}", fileDocHandler.Delete)
	})

	return r
}
