// Package docstore persists Documents, Repositories, and their dependency
// tree in Postgres.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/docwarden/docwarden/internal/docmodel"
)

// repositoryRow is the database-facing shape of docmodel.Repository; the
// dependency tree is reconstructed from documentRow.ParentID on read, per
// the cyclic-data design note (it is never stored as an adjacency list).
type repositoryRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	RootDocID string    `db:"root_doc_id"`
	Version   string    `db:"version"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type documentRow struct {
	ID               string         `db:"id"`
	RepoID           string         `db:"repo_id"`
	OwnerID          string         `db:"owner_id"`
	SourceURL        string         `db:"source_url"`
	RelativePath     string         `db:"relative_path"`
	Kind             string         `db:"kind"`
	ParentID         sql.NullString `db:"parent_id"`
	SizeBytes        sql.NullInt64  `db:"size_bytes"`
	Status           string         `db:"status"`
	Extracted        []byte         `db:"extracted"`
	Markdown         string         `db:"markdown"`
	PromptTokens     int            `db:"prompt_tokens"`
	CompletionTokens int            `db:"completion_tokens"`
	ContentHash      string         `db:"content_hash"`
}

// ScanState is the last-seen content hash for one file. The store reads and
// writes these rows; no other package calls GetScanState or UpsertScanState.
type ScanState struct {
	RepoID       string    `db:"repo_id"`
	RelativePath string    `db:"relative_path"`
	ContentHash  string    `db:"content_hash"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Store defines the interface for all document/repository persistence.
//
//go:generate mockgen -destination=../../mocks/mock_docstore.go -package=mocks github.com/docwarden/docwarden/internal/docstore Store
type Store interface {
	CreateRepository(ctx context.Context, repo *docmodel.Repository) error
	GetRepository(ctx context.Context, id string) (*docmodel.Repository, error)
	GetRepositoryByOwner(ctx context.Context, ownerID, id string) (*docmodel.Repository, error)
	ListRepositories(ctx context.Context, ownerID string) ([]*docmodel.Repository, error)
	UpdateRepositoryStatus(ctx context.Context, id string, status docmodel.Status) error
	DeleteRepository(ctx context.Context, id string) error

	PutDocuments(ctx context.Context, docs []docmodel.Document, parents map[string]string) error
	GetDocument(ctx context.Context, id string) (*docmodel.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, from, to docmodel.Status) error
	SaveDocumentResult(ctx context.Context, doc docmodel.Document) error
	DeleteDocument(ctx context.Context, id string) error

	GetScanState(ctx context.Context, repoID string) (map[string]string, error)
	UpsertScanState(ctx context.Context, repoID string, states []ScanState) error
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) CreateRepository(ctx context.Context, repo *docmodel.Repository) error {
	query := `
		INSERT INTO repositories (id, owner_id, name, root_doc_id, version, status)
		VALUES (:id, :owner_id, :name, :root_doc_id, :version, :status)`
	row := repositoryRow{
		ID:        repo.ID,
		OwnerID:   repo.OwnerID,
		Name:      repo.Name,
		RootDocID: repo.RootDocID,
		Version:   repo.Version,
		Status:    string(repo.Status),
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.ID, err)
	}
	return nil
}

func (s *postgresStore) GetRepository(ctx context.Context, id string) (*docmodel.Repository, error) {
	return s.getRepository(ctx, "SELECT id, owner_id, name, root_doc_id, version, status, created_at, updated_at FROM repositories WHERE id = $1", id)
}

// GetRepositoryByOwner loads a repository by id alone, then checks ownership
// in Go so a repository that exists but belongs to a different owner reports
// ErrNotOwner rather than being indistinguishable from ErrNotFound, mirroring
// the document-level ownership check in RegenerateDoc/DeleteDoc.
func (s *postgresStore) GetRepositoryByOwner(ctx context.Context, ownerID, id string) (*docmodel.Repository, error) {
	repo, err := s.GetRepository(ctx, id)
	if err != nil {
		return nil, err
	}
	if repo.OwnerID != ownerID {
		return nil, docmodel.ErrNotOwner
	}
	return repo, nil
}

// ListRepositories returns every repository owned by ownerID, without their
// document trees: the caller (the GET /repos list route) only needs each
// repo's own status, not its full dependency graph.
func (s *postgresStore) ListRepositories(ctx context.Context, ownerID string) ([]*docmodel.Repository, error) {
	var rows []repositoryRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, owner_id, name, root_doc_id, version, status, created_at, updated_at FROM repositories WHERE owner_id = $1 ORDER BY created_at DESC",
		ownerID); err != nil {
		return nil, fmt.Errorf("failed to list repositories for owner %s: %w", ownerID, err)
	}

	repos := make([]*docmodel.Repository, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, &docmodel.Repository{
			ID:        row.ID,
			OwnerID:   row.OwnerID,
			Name:      row.Name,
			RootDocID: row.RootDocID,
			Version:   row.Version,
			Status:    docmodel.Status(row.Status),
		})
	}
	return repos, nil
}

func (s *postgresStore) getRepository(ctx context.Context, query string, args ...any) (*docmodel.Repository, error) {
	var row repositoryRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docmodel.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	var docRows []documentRow
	if err := s.db.SelectContext(ctx, &docRows,
		"SELECT id, repo_id, owner_id, source_url, relative_path, kind, parent_id, size_bytes, status, extracted, markdown, prompt_tokens, completion_tokens, content_hash FROM documents WHERE repo_id = $1",
		row.ID); err != nil {
		return nil, fmt.Errorf("failed to load documents for repository %s: %w", row.ID, err)
	}

	repo := &docmodel.Repository{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		Name:         row.Name,
		RootDocID:    row.RootDocID,
		Version:      row.Version,
		Status:       docmodel.Status(row.Status),
		Dependencies: make(map[string]string, len(docRows)),
		Docs:         make(map[string]docmodel.Document, len(docRows)),
	}
	for _, dr := range docRows {
		doc, err := dr.toDocument()
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", dr.ID, err)
		}
		repo.Docs[doc.ID] = doc
		if dr.ParentID.Valid {
			repo.Dependencies[doc.ID] = dr.ParentID.String
		}
	}
	return repo, nil
}

func (s *postgresStore) UpdateRepositoryStatus(ctx context.Context, id string, status docmodel.Status) error {
	_, err := s.db.ExecContext(ctx, "UPDATE repositories SET status = $1, updated_at = NOW() WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update repository %s status: %w", id, err)
	}
	return nil
}

func (s *postgresStore) DeleteRepository(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM repositories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", id, err)
	}
	return nil
}

// DeleteDocument removes a single file document. Used by DELETE /file-docs/{doc_id};
// unlike DeleteRepository it never cascades, since a file document has no children.
func (s *postgresStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// PutDocuments writes the result of an Identifier run: the full set of
// documents for a repository and their parent pointers, in one transaction.
func (s *postgresStore) PutDocuments(ctx context.Context, docs []docmodel.Document, parents map[string]string) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in PutDocuments", "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, repo_id, owner_id, source_url, relative_path, kind, parent_id, size_bytes, status, extracted, markdown, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			size_bytes = EXCLUDED.size_bytes,
			content_hash = EXCLUDED.content_hash,
			updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		extracted, err := json.Marshal(d.Extracted)
		if err != nil {
			return fmt.Errorf("failed to encode extracted fields for %s: %w", d.ID, err)
		}
		var parentID any
		if p, ok := parents[d.ID]; ok {
			parentID = p
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.RepoID, d.OwnerID, d.SourceURL, d.RelativePath,
			string(d.Kind), parentID, d.SizeBytes, string(d.Status), extracted, d.Markdown, ""); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

func (s *postgresStore) GetDocument(ctx context.Context, id string) (*docmodel.Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, repo_id, owner_id, source_url, relative_path, kind, parent_id, size_bytes, status, extracted, markdown, prompt_tokens, completion_tokens, content_hash FROM documents WHERE id = $1",
		id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docmodel.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	doc, err := row.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocumentStatus applies a compare-and-swap status transition: the
// update only takes effect if the row's current status still matches from,
// which is how the scheduler and job controller avoid racing a regeneration
// against an in-flight generation of the same document.
func (s *postgresStore) UpdateDocumentStatus(ctx context.Context, id string, from, to docmodel.Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to transition document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docmodel.ErrBusy
	}
	return nil
}

// SaveDocumentResult persists a completed or failed generation: the
// markdown text, the extracted fields, and token usage.
func (s *postgresStore) SaveDocumentResult(ctx context.Context, doc docmodel.Document) error {
	extracted, err := json.Marshal(doc.Extracted)
	if err != nil {
		return fmt.Errorf("failed to encode extracted fields for %s: %w", doc.ID, err)
	}
	query := `
		UPDATE documents SET
			status = :status,
			extracted = :extracted,
			markdown = :markdown,
			prompt_tokens = :prompt_tokens,
			completion_tokens = :completion_tokens,
			updated_at = NOW()
		WHERE id = :id`
	args := map[string]any{
		"id":                doc.ID,
		"status":            string(doc.Status),
		"extracted":         extracted,
		"markdown":          doc.Markdown,
		"prompt_tokens":     doc.Usage.PromptTokens,
		"completion_tokens": doc.Usage.CompletionTokens,
	}
	if _, err := s.db.NamedExecContext(ctx, query, args); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			slog.Error("postgres error saving document result", "code", pqErr.Code, "message", pqErr.Message)
		}
		return fmt.Errorf("failed to save result for document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *postgresStore) GetScanState(ctx context.Context, repoID string) (map[string]string, error) {
	var rows []ScanState
	if err := s.db.SelectContext(ctx, &rows, "SELECT repo_id, relative_path, content_hash, updated_at FROM scan_state WHERE repo_id = $1", repoID); err != nil {
		return nil, fmt.Errorf("failed to get scan state for repo %s: %w", repoID, err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.RelativePath] = r.ContentHash
	}
	return out, nil
}

// UpsertScanState records the content hash observed for each path in the
// current scan, in batches of 1000 to stay well under Postgres's parameter
// limit on a single statement.
func (s *postgresStore) UpsertScanState(ctx context.Context, repoID string, states []ScanState) error {
	if len(states) == 0 {
		return nil
	}

	const batchSize = 1000
	for i := 0; i < len(states); i += batchSize {
		end := min(i+batchSize, len(states))
		if err := s.upsertScanStateBatch(ctx, repoID, states[i:end]); err != nil {
			return fmt.Errorf("failed to upsert scan state batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *postgresStore) upsertScanStateBatch(ctx context.Context, repoID string, states []ScanState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "transaction rollback failed in UpsertScanState", "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scan_state (repo_id, relative_path, content_hash, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (repo_id, relative_path)
		DO UPDATE SET content_hash = EXCLUDED.content_hash, updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare scan state upsert: %w", err)
	}
	defer stmt.Close()

	for _, st := range states {
		if _, err := stmt.ExecContext(ctx, repoID, st.RelativePath, st.ContentHash); err != nil {
			return fmt.Errorf("failed to upsert scan state for %s: %w", st.RelativePath, err)
		}
	}
	return tx.Commit()
}

func (dr documentRow) toDocument() (docmodel.Document, error) {
	var extracted map[string]any
	if len(dr.Extracted) > 0 {
		if err := json.Unmarshal(dr.Extracted, &extracted); err != nil {
			return docmodel.Document{}, fmt.Errorf("failed to decode extracted json: %w", err)
		}
	}
	doc := docmodel.Document{
		ID:           dr.ID,
		RepoID:       dr.RepoID,
		OwnerID:      dr.OwnerID,
		SourceURL:    dr.SourceURL,
		RelativePath: dr.RelativePath,
		Kind:         docmodel.Kind(dr.Kind),
		Status:       docmodel.Status(dr.Status),
		Extracted:    extracted,
		Markdown:     dr.Markdown,
		Usage: docmodel.Usage{
			PromptTokens:     dr.PromptTokens,
			CompletionTokens: dr.CompletionTokens,
		},
	}
	if dr.SizeBytes.Valid {
		doc.SizeBytes = &dr.SizeBytes.Int64
	}
	return doc, nil
}
