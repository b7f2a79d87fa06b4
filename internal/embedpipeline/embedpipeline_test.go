package embedpipeline

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/chunker"
	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/llmgateway"
	"github.com/docwarden/docwarden/internal/vectorindex"
)

type charTokenizer struct{}

func (charTokenizer) Count(text string) int { return len(text) }

type fakeGateway struct{}

func (fakeGateway) GenerateText(context.Context, string) (string, docmodel.Usage, error) {
	return "", docmodel.Usage{}, nil
}
func (fakeGateway) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}
func (fakeGateway) Tokenizer() llmgateway.Tokenizer { return charTokenizer{} }

type fakeIndex struct {
	mu       sync.Mutex
	upserted []docmodel.ChunkRecord
	deleted  []string
	namespaces map[string]bool
}

func newFakeIndex() *fakeIndex { return &fakeIndex{namespaces: map[string]bool{}} }

func (f *fakeIndex) EnsureCollection(context.Context, uint64) error { return nil }
func (f *fakeIndex) Upsert(_ context.Context, namespace string, records []docmodel.ChunkRecord, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records...)
	f.namespaces[namespace] = true
	return nil
}
func (f *fakeIndex) Search(context.Context, string, []float32, int) ([]vectorindex.SearchResult, error) {
	return nil, nil
}
func (f *fakeIndex) DeleteByDocID(_ context.Context, _ string, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, docID)
	return nil
}
func (f *fakeIndex) DeleteNamespace(context.Context, string) error { return nil }
func (f *fakeIndex) HasNamespace(_ context.Context, namespace string) (bool, error) {
	return f.namespaces[namespace], nil
}

func testRepo() *docmodel.Repository {
	return &docmodel.Repository{
		ID: "repo-1",
		Docs: map[string]docmodel.Document{
			"a": {ID: "a", Status: docmodel.StatusCompleted, Markdown: "# a\n\nsome content about topic a"},
			"b": {ID: "b", Status: docmodel.StatusInProgress, Markdown: "# b\n\nshould be skipped"},
		},
	}
}

func TestPipeline_Run_EmbedsOnlyCompletedDocs(t *testing.T) {
	idx := newFakeIndex()
	c := chunker.New(charTokenizer{}, 250, 50)
	p := New(fakeGateway{}, idx, c, 2048, 100, 4, slog.Default())

	err := p.Run(context.Background(), testRepo())
	require.NoError(t, err)

	for _, r := range idx.upserted {
		assert.Equal(t, "a", r.DocID)
	}
	assert.NotEmpty(t, idx.upserted)
}

func TestPipeline_Run_RefusesNamespaceConflict(t *testing.T) {
	idx := newFakeIndex()
	idx.namespaces["repo-1"] = true
	c := chunker.New(charTokenizer{}, 250, 50)
	p := New(fakeGateway{}, idx, c, 2048, 100, 4, slog.Default())

	err := p.Run(context.Background(), testRepo())
	require.ErrorIs(t, err, docmodel.ErrNamespaceConflict)
}

func TestPipeline_Regenerate_DeletesThenReembeds(t *testing.T) {
	idx := newFakeIndex()
	c := chunker.New(charTokenizer{}, 250, 50)
	p := New(fakeGateway{}, idx, c, 2048, 100, 4, slog.Default())

	doc := docmodel.Document{ID: "a", Markdown: "# a\n\nnew content"}
	err := p.Regenerate(context.Background(), &docmodel.Repository{ID: "repo-1"}, doc)
	require.NoError(t, err)

	assert.Contains(t, idx.deleted, "a")
	assert.NotEmpty(t, idx.upserted)
}
