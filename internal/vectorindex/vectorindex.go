// Package vectorindex stores and searches chunk embeddings in Qdrant,
// scoping every operation to a single repository namespace so one
// collection safely serves every indexed repository.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docwarden/docwarden/internal/docmodel"
)

const collectionName = "docwarden_chunks"

// Index is the namespace-scoped surface the Embedding Pipeline and the
// Agent/Search component use; neither ever touches the Qdrant client
// directly, so swapping the backing store later only touches this package.
type Index interface {
	EnsureCollection(ctx context.Context, vectorSize uint64) error
	// Upsert writes records in batches of at most maxBatch, all within the
	// given namespace (repository id).
	Upsert(ctx context.Context, namespace string, records []docmodel.ChunkRecord, maxBatch int) error
	// Search returns the topK closest chunks to queryVector within namespace.
	Search(ctx context.Context, namespace string, queryVector []float32, topK int) ([]SearchResult, error)
	// DeleteByDocID removes every vector belonging to docID, used before a
	// regeneration re-embeds a document's content.
	DeleteByDocID(ctx context.Context, namespace, docID string) error
	// DeleteNamespace removes every vector in namespace, used when a
	// repository is deleted.
	DeleteNamespace(ctx context.Context, namespace string) error
	// HasNamespace reports whether any vector already exists in namespace,
	// used to detect a first-time embedding run against an already-occupied
	// repository id.
	HasNamespace(ctx context.Context, namespace string) (bool, error)
}

type SearchResult struct {
	DocID     string
	ChunkText string
	Score     float32
}

const (
	payloadDocID     = "doc_id"
	payloadNamespace = "namespace"
	payloadChunkText = "chunk_text"
)

type qdrantIndex struct {
	client *qdrant.Client
}

func New(client *qdrant.Client) Index {
	return &qdrantIndex{client: client}
}

func (idx *qdrantIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := idx.client.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}
	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collectionName, err)
	}
	return nil
}

// Upsert batches records at maxBatch per request, matching the Qdrant
// client's own recommended ceiling for points-per-upsert.
func (idx *qdrantIndex) Upsert(ctx context.Context, namespace string, records []docmodel.ChunkRecord, maxBatch int) error {
	if maxBatch <= 0 {
		maxBatch = 100
	}
	for i := 0; i < len(records); i += maxBatch {
		end := min(i+maxBatch, len(records))
		if err := idx.upsertBatch(ctx, namespace, records[i:end]); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (idx *qdrantIndex) upsertBatch(ctx context.Context, namespace string, records []docmodel.ChunkRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(r.VectorID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadDocID:     r.DocID,
				payloadNamespace: namespace,
				payloadChunkText: r.ChunkText,
			}),
		})
	}
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         points,
	})
	return err
}

func (idx *qdrantIndex) Search(ctx context.Context, namespace string, queryVector []float32, topK int) ([]SearchResult, error) {
	limit := uint64(topK)
	resp, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         namespaceFilter(namespace),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search namespace %s: %w", namespace, err)
	}

	results := make([]SearchResult, 0, len(resp))
	for _, point := range resp {
		payload := point.GetPayload()
		results = append(results, SearchResult{
			DocID:     payload[payloadDocID].GetStringValue(),
			ChunkText: payload[payloadChunkText].GetStringValue(),
			Score:     point.GetScore(),
		})
	}
	return results, nil
}

func (idx *qdrantIndex) DeleteByDocID(ctx context.Context, namespace, docID string) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadNamespace, namespace),
				qdrant.NewMatch(payloadDocID, docID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete vectors for document %s: %w", docID, err)
	}
	return nil
}

func (idx *qdrantIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

func (idx *qdrantIndex) HasNamespace(ctx context.Context, namespace string) (bool, error) {
	limit := uint64(1)
	resp, err := idx.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collectionName,
		Filter:         namespaceFilter(namespace),
		Limit:          &limit,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check namespace %s: %w", namespace, err)
	}
	return len(resp) > 0, nil
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadNamespace, namespace)},
	}
}
