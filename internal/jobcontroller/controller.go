// Package jobcontroller is the in-process job queue that backs the HTTP
// surface: every non-instant operation (identify + generate a whole
// repository, generate a single file, regenerate) gets dispatched onto a
// bounded worker pool and returns immediately.
package jobcontroller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/docstore"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

// Identifier is the narrow surface EnqueueRepo needs from internal/identifier.
type Identifier interface {
	Identify(ctx context.Context, handle sourcehost.Handle, ownerID, repoURL string) (*docmodel.Repository, error)
}

// Generator is the narrow surface single-document jobs need from internal/docgen.
type Generator interface {
	Generate(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository, docID string) error
}

// Scheduler is the narrow surface repository jobs need from internal/scheduler.
type Scheduler interface {
	Run(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository) error
}

// Embedder is the narrow surface repository and regeneration jobs need from
// internal/embedpipeline.
type Embedder interface {
	Run(ctx context.Context, repo *docmodel.Repository) error
	Regenerate(ctx context.Context, repo *docmodel.Repository, doc docmodel.Document) error
	DeleteNamespace(ctx context.Context, repoID string) error
}

// Controller wires the Source Host Adapter, Identifier, Document Store,
// Repo Scheduler, Doc Generator, and Embedding Pipeline behind the
// operations the HTTP surface and the CLI call.
type Controller struct {
	sourceHost sourcehost.SourceHost
	identifier Identifier
	store      docstore.Store
	scheduler  Scheduler
	generator  Generator
	embedder   Embedder
	dispatcher *dispatcher
	logger     *slog.Logger
}

func New(sourceHost sourcehost.SourceHost, identifier Identifier, store docstore.Store, scheduler Scheduler, generator Generator, embedder Embedder, maxWorkers int, logger *slog.Logger) *Controller {
	return &Controller{
		sourceHost: sourceHost,
		identifier: identifier,
		store:      store,
		scheduler:  scheduler,
		generator:  generator,
		embedder:   embedder,
		dispatcher: newDispatcher(maxWorkers, logger),
		logger:     logger,
	}
}

// Stop waits for all in-flight jobs to finish before returning, used during
// graceful shutdown.
func (c *Controller) Stop() {
	c.dispatcher.stop()
}

// EnqueueRepo resolves and identifies githubURL synchronously (a bounded
// tree walk), persists the resulting dependency tree, and dispatches
// generation and embedding on the worker pool. It returns as soon as the
// tree is persisted, matching the HTTP surface's 202-shaped contract.
func (c *Controller) EnqueueRepo(ctx context.Context, ownerID, githubURL string) (jobID, repoID string, err error) {
	handle, err := c.sourceHost.Resolve(ctx, githubURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", githubURL, err)
	}

	repo, err := c.identifier.Identify(ctx, handle, ownerID, githubURL)
	if err != nil {
		handle.Close()
		return "", "", fmt.Errorf("failed to identify %s: %w", githubURL, err)
	}

	if err := c.persistRepo(ctx, repo); err != nil {
		handle.Close()
		return "", "", err
	}

	if err := c.store.UpdateRepositoryStatus(ctx, repo.ID, docmodel.StatusInProgress); err != nil {
		handle.Close()
		return "", "", err
	}

	jobID = uuid.NewString()
	if err := c.dispatcher.dispatch(jobID, func(ctx context.Context) {
		defer handle.Close()
		c.runRepoJob(ctx, handle, repo)
	}); err != nil {
		handle.Close()
		return "", "", err
	}

	return jobID, repo.ID, nil
}

// GenerateRepo re-runs the Repo Scheduler and Embedding Pipeline for an
// already-identified repository, used by POST /repos/{repo_id}/generate.
func (c *Controller) GenerateRepo(ctx context.Context, repoID string) (jobID string, err error) {
	repo, err := c.store.GetRepository(ctx, repoID)
	if err != nil {
		return "", fmt.Errorf("failed to load repository %s: %w", repoID, err)
	}
	if repo.Status == docmodel.StatusInProgress {
		return "", fmt.Errorf("repository %s: %w", repoID, docmodel.ErrBusy)
	}

	root := repo.Docs[repo.RootDocID]
	handle, err := c.sourceHost.Resolve(ctx, root.SourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root.SourceURL, err)
	}

	if err := c.store.UpdateRepositoryStatus(ctx, repoID, docmodel.StatusInProgress); err != nil {
		handle.Close()
		return "", err
	}

	jobID = uuid.NewString()
	if err := c.dispatcher.dispatch(jobID, func(ctx context.Context) {
		defer handle.Close()
		c.runRepoJob(ctx, handle, repo)
	}); err != nil {
		handle.Close()
		return "", err
	}

	return jobID, nil
}

func (c *Controller) runRepoJob(ctx context.Context, handle sourcehost.Handle, repo *docmodel.Repository) {
	if err := c.scheduler.Run(ctx, handle, repo); err != nil {
		c.logger.Error("repo scheduler run failed", "repo_id", repo.ID, "error", err)
		if updateErr := c.store.UpdateRepositoryStatus(ctx, repo.ID, docmodel.StatusFailed); updateErr != nil {
			c.logger.Error("failed to mark repository failed", "repo_id", repo.ID, "error", updateErr)
		}
		return
	}
	if err := c.embedder.Run(ctx, repo); err != nil {
		c.logger.Error("embedding pipeline run failed", "repo_id", repo.ID, "error", err)
	}
}

func (c *Controller) persistRepo(ctx context.Context, repo *docmodel.Repository) error {
	if err := c.store.CreateRepository(ctx, repo); err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.ID, err)
	}

	docs := make([]docmodel.Document, 0, len(repo.Docs))
	for _, doc := range repo.Docs {
		docs = append(docs, doc)
	}
	if err := c.store.PutDocuments(ctx, docs, repo.Dependencies); err != nil {
		return fmt.Errorf("failed to persist documents for repository %s: %w", repo.ID, err)
	}
	return nil
}

// EnqueueFileDoc identifies a single file (no repository tree) and
// dispatches its generation job, used by POST /file-docs.
func (c *Controller) EnqueueFileDoc(ctx context.Context, ownerID, fileURL string) (jobID, docID string, err error) {
	repoURL, relativePath, err := splitFileURL(fileURL)
	if err != nil {
		return "", "", err
	}
	owner, _, _ := sourcehost.ParseOwnerRepo(repoURL)

	handle, err := c.sourceHost.Resolve(ctx, repoURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", repoURL, err)
	}

	docID = uuid.NewString()
	doc := docmodel.Document{
		ID:           docID,
		RepoID:       docID,
		OwnerID:      ownerID,
		SourceURL:    repoURL,
		RelativePath: relativePath,
		Kind:         docmodel.KindFile,
		Status:       docmodel.StatusNotStarted,
	}
	repo := &docmodel.Repository{
		ID:        docID,
		OwnerID:   ownerID,
		Name:      owner,
		RootDocID: docID,
		Docs:      map[string]docmodel.Document{docID: doc},
	}

	// A single-file doc is its own one-node "repository", so the document's
	// repo_id foreign key and the later DeleteRepo/EnqueueRepo code paths
	// both have a row to point at.
	if err := c.persistRepo(ctx, repo); err != nil {
		handle.Close()
		return "", "", err
	}

	jobID = uuid.NewString()
	if err := c.dispatcher.dispatch(jobID, func(ctx context.Context) {
		defer handle.Close()
		if err := c.generator.Generate(ctx, handle, repo, docID); err != nil {
			c.logger.Error("file doc generation failed", "doc_id", docID, "error", err)
		}
	}); err != nil {
		handle.Close()
		return "", "", err
	}

	return jobID, docID, nil
}

// RegenerateDoc re-runs generation for a single document already in a
// terminal state, re-embedding its markdown afterward, used by
// PUT /file-docs/{doc_id}.
func (c *Controller) RegenerateDoc(ctx context.Context, ownerID, docID string) (jobID string, err error) {
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("failed to load document %s: %w", docID, err)
	}
	if doc.OwnerID != ownerID {
		return "", fmt.Errorf("document %s: %w", docID, docmodel.ErrNotOwner)
	}
	if !docmodel.CanTransition(doc.Status, docmodel.StatusInProgress) {
		return "", fmt.Errorf("document %s: %w", docID, docmodel.ErrBusy)
	}

	handle, err := c.sourceHost.Resolve(ctx, doc.SourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", doc.SourceURL, err)
	}

	repo := &docmodel.Repository{ID: doc.RepoID, RootDocID: docID, Docs: map[string]docmodel.Document{docID: *doc}}

	jobID = uuid.NewString()
	if err := c.dispatcher.dispatch(jobID, func(ctx context.Context) {
		defer handle.Close()
		if err := c.generator.Generate(ctx, handle, repo, docID); err != nil {
			c.logger.Error("document regeneration failed", "doc_id", docID, "error", err)
			return
		}
		regenerated, err := c.store.GetDocument(ctx, docID)
		if err != nil {
			c.logger.Error("failed to reload regenerated document", "doc_id", docID, "error", err)
			return
		}
		if err := c.embedder.Regenerate(ctx, repo, *regenerated); err != nil {
			c.logger.Error("failed to re-embed regenerated document", "doc_id", docID, "error", err)
		}
	}); err != nil {
		handle.Close()
		return "", err
	}

	return jobID, nil
}

// DeleteRepo removes a repository, its generated documents, and its
// embeddings namespace, used by DELETE /repos/{repo_id}.
func (c *Controller) DeleteRepo(ctx context.Context, ownerID, repoID string) error {
	if _, err := c.store.GetRepositoryByOwner(ctx, ownerID, repoID); err != nil {
		return fmt.Errorf("failed to load repository %s: %w", repoID, err)
	}
	if err := c.embedder.DeleteNamespace(ctx, repoID); err != nil {
		return fmt.Errorf("failed to delete embeddings namespace for repository %s: %w", repoID, err)
	}
	return c.store.DeleteRepository(ctx, repoID)
}

// DeleteDoc removes a single file document and its embeddings, used by
// DELETE /file-docs/{doc_id}. A document in progress cannot be deleted.
func (c *Controller) DeleteDoc(ctx context.Context, ownerID, docID string) error {
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", docID, err)
	}
	if doc.OwnerID != ownerID {
		return fmt.Errorf("document %s: %w", docID, docmodel.ErrNotOwner)
	}
	if doc.Status == docmodel.StatusInProgress {
		return fmt.Errorf("document %s: %w", docID, docmodel.ErrBusy)
	}
	if err := c.embedder.DeleteNamespace(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete embeddings for document %s: %w", docID, err)
	}
	return c.store.DeleteDocument(ctx, docID)
}

// Identify resolves and identifies githubURL and persists the resulting
// dependency tree without dispatching generation, used by
// POST /repos/identify.
func (c *Controller) Identify(ctx context.Context, ownerID, githubURL string) (*docmodel.Repository, error) {
	handle, err := c.sourceHost.Resolve(ctx, githubURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", githubURL, err)
	}
	defer handle.Close()

	repo, err := c.identifier.Identify(ctx, handle, ownerID, githubURL)
	if err != nil {
		return nil, fmt.Errorf("failed to identify %s: %w", githubURL, err)
	}

	if err := c.persistRepo(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// splitFileURL splits a GitHub blob URL
// ("https://github.com/owner/repo/blob/branch/path/to/file.go") into the
// repository URL the Source Host Adapter resolves and the file's relative
// path within it.
func splitFileURL(fileURL string) (repoURL, relativePath string, err error) {
	const marker = "/blob/"
	idx := strings.Index(fileURL, marker)
	if idx == -1 {
		return "", "", fmt.Errorf("%w: expected a github blob url, got %q", docmodel.ErrInvalidURL, fileURL)
	}
	repoURL = fileURL[:idx]

	rest := fileURL[idx+len(marker):]
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return "", "", fmt.Errorf("%w: missing file path in %q", docmodel.ErrInvalidURL, fileURL)
	}
	relativePath = rest[slash+1:]
	if relativePath == "" {
		return "", "", fmt.Errorf("%w: missing file path in %q", docmodel.ErrInvalidURL, fileURL)
	}
	return repoURL, relativePath, nil
}

// Status reports a repository's current generation status as stored in the
// Document Store; no separate job table exists beyond the Scheduler's
// in-memory bookkeeping during a run.
func (c *Controller) Status(ctx context.Context, repoID string) (docmodel.Status, error) {
	repo, err := c.store.GetRepository(ctx, repoID)
	if err != nil {
		return "", fmt.Errorf("failed to load repository %s: %w", repoID, err)
	}
	return repo.Status, nil
}

// Repository loads a repository owned by ownerID, used by GET /repos/{repo_id}
// and GET /repos.
func (c *Controller) Repository(ctx context.Context, ownerID, repoID string) (*docmodel.Repository, error) {
	repo, err := c.store.GetRepositoryByOwner(ctx, ownerID, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load repository %s: %w", repoID, err)
	}
	return repo, nil
}

// Repositories lists every repository owned by ownerID, used by GET /repos.
func (c *Controller) Repositories(ctx context.Context, ownerID string) ([]*docmodel.Repository, error) {
	repos, err := c.store.ListRepositories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories for owner %s: %w", ownerID, err)
	}
	return repos, nil
}

// Document loads a single document, used by GET /repos/{repo_id}/{doc_id}
// and GET /file-docs/{doc_id}.
func (c *Controller) Document(ctx context.Context, docID string) (*docmodel.Document, error) {
	doc, err := c.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", docID, err)
	}
	return doc, nil
}
