// Package embedpipeline chunks and embeds a repository's generated
// documentation into the Vector Index once generation completes, scoping
// every vector to the repository's own namespace.
package embedpipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/docwarden/docwarden/internal/chunker"
	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/vectorindex"
)

// Pipeline embeds a repository's completed documents into the Vector Index.
type Pipeline struct {
	gateway      llmgateway.Gateway
	index        vectorindex.Index
	chunker      *chunker.Chunker
	embedBatchMax int
	upsertBatchMax int
	concurrency  int
	logger       *slog.Logger
}

func New(gateway llmgateway.Gateway, index vectorindex.Index, c *chunker.Chunker, embedBatchMax, upsertBatchMax, concurrency int, logger *slog.Logger) *Pipeline {
	if embedBatchMax <= 0 {
		embedBatchMax = 2048
	}
	if upsertBatchMax <= 0 {
		upsertBatchMax = 100
	}
	if concurrency <= 0 {
		concurrency = 30
	}
	return &Pipeline{gateway: gateway, index: index, chunker: c, embedBatchMax: embedBatchMax, upsertBatchMax: upsertBatchMax, concurrency: concurrency, logger: logger}
}

// Run refuses to re-embed a repository whose namespace already has vectors
// (NamespaceConflict), then walks every completed document in repo,
// chunking and embedding its markdown concurrently up to the configured
// fan-out.
func (p *Pipeline) Run(ctx context.Context, repo *docmodel.Repository) error {
	exists, err := p.index.HasNamespace(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("failed to check namespace %s: %w", repo.ID, err)
	}
	if exists {
		return fmt.Errorf("repository %s: %w", repo.ID, docmodel.ErrNamespaceConflict)
	}

	docs := completedDocs(repo)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.concurrency)
	for _, doc := range docs {
		doc := doc
		group.Go(func() error {
			return p.embedDocument(groupCtx, repo.ID, doc)
		})
	}
	return group.Wait()
}

// DeleteNamespace removes every vector belonging to repoID, used when a
// repository is deleted.
func (p *Pipeline) DeleteNamespace(ctx context.Context, repoID string) error {
	return p.index.DeleteNamespace(ctx, repoID)
}

// Regenerate re-embeds a single document after it has been regenerated,
// deleting its previous vectors before chunking and upserting the new
// markdown.
func (p *Pipeline) Regenerate(ctx context.Context, repo *docmodel.Repository, doc docmodel.Document) error {
	if err := p.index.DeleteByDocID(ctx, repo.ID, doc.ID); err != nil {
		return fmt.Errorf("failed to delete stale vectors for document %s: %w", doc.ID, err)
	}
	return p.embedDocument(ctx, repo.ID, doc)
}

// embedDocument chunks a document's markdown, batches chunks into groups of
// at most embedBatchMax for embedding, and upserts the resulting vectors in
// sub-batches of at most upsertBatchMax. Vector IDs are the document id with
// a monotonically increasing ordinal suffix.
func (p *Pipeline) embedDocument(ctx context.Context, namespace string, doc docmodel.Document) error {
	if doc.Markdown == "" {
		return nil
	}

	chunks := p.chunker.Chunk(doc.Markdown, chunker.MarkdownSeparators)
	if len(chunks) == 0 {
		return nil
	}

	ordinal := 0
	for start := 0; start < len(chunks); start += p.embedBatchMax {
		end := min(start+p.embedBatchMax, len(chunks))
		group := chunks[start:end]

		vectors, err := p.gateway.Embed(ctx, group)
		if err != nil {
			return fmt.Errorf("failed to embed chunks for document %s: %w", doc.ID, err)
		}

		records := make([]docmodel.ChunkRecord, 0, len(group))
		for i, text := range group {
			records = append(records, docmodel.ChunkRecord{
				VectorID:  fmt.Sprintf("%s-%d", doc.ID, ordinal),
				DocID:     doc.ID,
				Namespace: namespace,
				ChunkText: text,
				Embedding: vectors[i],
			})
			ordinal++
		}

		if err := p.index.Upsert(ctx, namespace, records, p.upsertBatchMax); err != nil {
			return fmt.Errorf("failed to upsert vectors for document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// completedDocs returns every COMPLETED document in repo; ordering is not
// semantically required by the pipeline, only batching throughput.
func completedDocs(repo *docmodel.Repository) []docmodel.Document {
	docs := make([]docmodel.Document, 0, len(repo.Docs))
	for _, doc := range repo.Docs {
		if doc.Status == docmodel.StatusCompleted {
			docs = append(docs, doc)
		}
	}
	return docs
}
