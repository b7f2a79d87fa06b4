package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docwarden/docwarden/internal/agent"
	"github.com/docwarden/docwarden/internal/docmodel"
)

// RepoController is the narrow surface the repo handlers need from
// internal/jobcontroller.
type RepoController interface {
	EnqueueRepo(ctx context.Context, ownerID, githubURL string) (jobID, repoID string, err error)
	Identify(ctx context.Context, ownerID, githubURL string) (*docmodel.Repository, error)
	GenerateRepo(ctx context.Context, repoID string) (jobID string, err error)
	Repositories(ctx context.Context, ownerID string) ([]*docmodel.Repository, error)
	Repository(ctx context.Context, ownerID, repoID string) (*docmodel.Repository, error)
	DeleteRepo(ctx context.Context, ownerID, repoID string) error
	Document(ctx context.Context, docID string) (*docmodel.Document, error)
}

// Searcher is the narrow surface the search handler needs from internal/agent.
type Searcher interface {
	Search(ctx context.Context, repoID, query string, topK int) ([]agent.SearchHit, error)
}

type repoRequest struct {
	GithubURL string `json:"github_url"`
}

// RepoHandler implements every /repos route.
type RepoHandler struct {
	ctrl     RepoController
	search   Searcher
	ownerID  ownerIDFunc
	topK     int
	logger   *slog.Logger
}

func NewRepoHandler(ctrl RepoController, search Searcher, ownerID ownerIDFunc, topK int, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{ctrl: ctrl, search: search, ownerID: ownerID, topK: topK, logger: logger}
}

// Create identifies a repository and enqueues generation. POST /repos.
func (h *RepoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req repoRequest
	if err := decodeJSON(r, &req); err != nil || req.GithubURL == "" {
		writeError(w, h.logger, docmodel.ErrInvalidURL)
		return
	}

	jobID, repoID, err := h.ctrl.EnqueueRepo(r.Context(), h.ownerID(r.Context()), req.GithubURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "repository generation started", "id": repoID, "job_id": jobID})
}

type docItem struct {
	ID   string      `json:"id"`
	Path string      `json:"path"`
	Type docmodel.Kind `json:"type"`
}

// Identify identifies a repository without enqueueing generation. POST /repos/identify.
func (h *RepoHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req repoRequest
	if err := decodeJSON(r, &req); err != nil || req.GithubURL == "" {
		writeError(w, h.logger, docmodel.ErrInvalidURL)
		return
	}

	repo, err := h.ctrl.Identify(r.Context(), h.ownerID(r.Context()), req.GithubURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]docItem, 0, len(repo.Docs))
	for _, doc := range repo.Docs {
		items = append(items, docItem{ID: doc.ID, Path: doc.RelativePath, Type: doc.Kind})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "repository identified",
		"id":               repo.ID,
		"items_to_document": items,
	})
}

// Generate re-runs generation for an already-identified repository.
// POST /repos/{repo_id}/generate.
func (h *RepoHandler) Generate(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repo_id")
	jobID, err := h.ctrl.GenerateRepo(r.Context(), repoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "repository generation started", "id": repoID, "job_id": jobID})
}

type repoSummary struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     docmodel.Status `json:"status"`
	DocsStatus []docmodel.Status `json:"docs_status"`
}

// List returns the caller's repositories with per-document status. GET /repos.
func (h *RepoHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := h.ownerID(r.Context())
	repos, err := h.ctrl.Repositories(r.Context(), ownerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summaries := make([]repoSummary, 0, len(repos))
	for _, repo := range repos {
		full, err := h.ctrl.Repository(r.Context(), ownerID, repo.ID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		statuses := make([]docmodel.Status, 0, len(full.Docs))
		for _, doc := range full.Docs {
			statuses = append(statuses, doc.Status)
		}
		summaries = append(summaries, repoSummary{ID: full.ID, Name: full.Name, Status: full.Status, DocsStatus: statuses})
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": summaries})
}

// Get returns the formatted document tree for one repository.
// GET /repos/{repo_id}.
func (h *RepoHandler) Get(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repo_id")
	repo, err := h.ctrl.Repository(r.Context(), h.ownerID(r.Context()), repoID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repo": map[string]any{
		"name":     repo.Name,
		"id":       repo.ID,
		"owner_id": repo.OwnerID,
		"status":   repo.Status,
		"tree":     repo.Format(),
	}})
}

// Delete removes a repository and its embeddings namespace. DELETE /repos/{repo_id}.
func (h *RepoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repo_id")
	if err := h.ctrl.DeleteRepo(r.Context(), h.ownerID(r.Context()), repoID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "repository deleted", "id": repoID})
}

// GetDocument fetches one document under a repository. GET /repos/{repo_id}/{doc_id}.
func (h *RepoHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repo_id")
	docID := chi.URLParam(r, "doc_id")

	doc, err := h.ctrl.Document(r.Context(), docID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if doc.RepoID != repoID {
		writeError(w, h.logger, docmodel.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               doc.ID,
		"github_url":       doc.SourceURL,
		"status":           doc.Status,
		"relative_path":    doc.RelativePath,
		"markdown_content": doc.Markdown,
	})
}

type searchHit struct {
	DocID        string  `json:"doc_id"`
	Score        float32 `json:"score"`
	ChunkContent string  `json:"chunk_content"`
}

// Search runs top-k semantic search scoped to one repository.
// GET /repos/{repo_id}/search?query=.
func (h *RepoHandler) Search(w http.ResponseWriter, r *http.Request) {
	repoID := chi.URLParam(r, "repo_id")
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, h.logger, docmodel.ErrEmptyInput)
		return
	}

	hits, err := h.search.Search(r.Context(), repoID, query, h.topK)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	results := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchHit{DocID: hit.DocID, Score: hit.Score, ChunkContent: hit.Content})
	}
	writeJSON(w, http.StatusOK, results)
}
