package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docwarden/docwarden/internal/docmodel"
)

// FileDocController is the narrow surface the file-doc handlers need from
// internal/jobcontroller.
type FileDocController interface {
	EnqueueFileDoc(ctx context.Context, ownerID, fileURL string) (jobID, docID string, err error)
	RegenerateDoc(ctx context.Context, ownerID, docID string) (jobID string, err error)
	DeleteDoc(ctx context.Context, ownerID, docID string) error
	Document(ctx context.Context, docID string) (*docmodel.Document, error)
}

// FileDocHandler implements every /file-docs route.
type FileDocHandler struct {
	ctrl    FileDocController
	ownerID ownerIDFunc
	logger  *slog.Logger
}

func NewFileDocHandler(ctrl FileDocController, ownerID ownerIDFunc, logger *slog.Logger) *FileDocHandler {
	return &FileDocHandler{ctrl: ctrl, ownerID: ownerID, logger: logger}
}

// Create enqueues a single-file doc job. POST /file-docs.
func (h *FileDocHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req repoRequest
	if err := decodeJSON(r, &req); err != nil || req.GithubURL == "" {
		writeError(w, h.logger, docmodel.ErrInvalidURL)
		return
	}

	jobID, docID, err := h.ctrl.EnqueueFileDoc(r.Context(), h.ownerID(r.Context()), req.GithubURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "file doc generation started", "id": docID, "job_id": jobID})
}

// Get fetches a single file document. GET /file-docs/{doc_id}.
func (h *FileDocHandler) Get(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	doc, err := h.ctrl.Document(r.Context(), docID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               doc.ID,
		"github_url":       doc.SourceURL,
		"status":           doc.Status,
		"relative_path":    doc.RelativePath,
		"markdown_content": doc.Markdown,
		"extracted":        doc.Extracted,
	})
}

// Regenerate re-runs generation for a file document. PUT /file-docs/{doc_id}.
func (h *FileDocHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	jobID, err := h.ctrl.RegenerateDoc(r.Context(), h.ownerID(r.Context()), docID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "document regeneration started", "id": docID, "job_id": jobID})
}

// Delete removes a file document and its embeddings. DELETE /file-docs/{doc_id}.
func (h *FileDocHandler) Delete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "doc_id")
	if err := h.ctrl.DeleteDoc(r.Context(), h.ownerID(r.Context()), docID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "document deleted", "id": docID})
}
