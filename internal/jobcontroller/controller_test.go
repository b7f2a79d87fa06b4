package jobcontroller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/docstore"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

type memStore struct {
	mu    sync.Mutex
	repos map[string]*docmodel.Repository
	docs  map[string]docmodel.Document
}

func newMemStore() *memStore {
	return &memStore{repos: map[string]*docmodel.Repository{}, docs: map[string]docmodel.Document{}}
}

func (m *memStore) CreateRepository(_ context.Context, repo *docmodel.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *repo
	m.repos[repo.ID] = &cp
	return nil
}
func (m *memStore) GetRepository(_ context.Context, id string) (*docmodel.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return nil, docmodel.ErrNotFound
	}
	cp := *repo
	return &cp, nil
}
func (m *memStore) GetRepositoryByOwner(ctx context.Context, _, id string) (*docmodel.Repository, error) {
	return m.GetRepository(ctx, id)
}
func (m *memStore) ListRepositories(_ context.Context, ownerID string) ([]*docmodel.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var repos []*docmodel.Repository
	for _, r := range m.repos {
		if r.OwnerID == ownerID {
			cp := *r
			repos = append(repos, &cp)
		}
	}
	return repos, nil
}
func (m *memStore) UpdateRepositoryStatus(_ context.Context, id string, status docmodel.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return docmodel.ErrNotFound
	}
	repo.Status = status
	return nil
}
func (m *memStore) DeleteRepository(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.repos, id)
	return nil
}
func (m *memStore) PutDocuments(_ context.Context, docs []docmodel.Document, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}
func (m *memStore) GetDocument(_ context.Context, id string) (*docmodel.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, docmodel.ErrNotFound
	}
	return &d, nil
}
func (m *memStore) UpdateDocumentStatus(_ context.Context, id string, _, to docmodel.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return docmodel.ErrNotFound
	}
	d.Status = to
	m.docs[id] = d
	return nil
}
func (m *memStore) SaveDocumentResult(_ context.Context, doc docmodel.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}
func (m *memStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}
func (m *memStore) GetScanState(context.Context, string) (map[string]string, error) { return nil, nil }
func (m *memStore) UpsertScanState(context.Context, string, []docstore.ScanState) error { return nil }

var _ docstore.Store = (*memStore)(nil)

type fakeHandle struct{ closed bool }

func (h *fakeHandle) FullName() string                                       { return "owner/repo" }
func (h *fakeHandle) ListDir(context.Context, string) ([]sourcehost.Entry, error) { return nil, nil }
func (h *fakeHandle) ReadFile(context.Context, string) ([]byte, error)        { return []byte("content"), nil }
func (h *fakeHandle) Close() error                                           { h.closed = true; return nil }

type fakeSourceHost struct {
	handle *fakeHandle
}

func (f *fakeSourceHost) Resolve(context.Context, string) (sourcehost.Handle, error) {
	return f.handle, nil
}

type fakeIdentifier struct {
	repo *docmodel.Repository
}

func (f *fakeIdentifier) Identify(context.Context, sourcehost.Handle, string, string) (*docmodel.Repository, error) {
	return f.repo, nil
}

type fakeScheduler struct{ ran chan string }

func (f *fakeScheduler) Run(_ context.Context, _ sourcehost.Handle, repo *docmodel.Repository) error {
	f.ran <- repo.ID
	return nil
}

type fakeFailingScheduler struct{ done chan struct{} }

func (f *fakeFailingScheduler) Run(_ context.Context, _ sourcehost.Handle, _ *docmodel.Repository) error {
	defer close(f.done)
	return errors.New("scheduler boom")
}

type fakeGenerator struct{ called chan string }

func (f *fakeGenerator) Generate(_ context.Context, _ sourcehost.Handle, _ *docmodel.Repository, docID string) error {
	f.called <- docID
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Run(context.Context, *docmodel.Repository) error { return nil }
func (fakeEmbedder) Regenerate(context.Context, *docmodel.Repository, docmodel.Document) error {
	return nil
}
func (fakeEmbedder) DeleteNamespace(context.Context, string) error { return nil }

func TestEnqueueRepo_PersistsAndDispatches(t *testing.T) {
	repo := &docmodel.Repository{
		ID:        "repo-1",
		RootDocID: "root",
		Docs:      map[string]docmodel.Document{"root": {ID: "root", Kind: docmodel.KindDirectory}},
	}
	store := newMemStore()
	sched := &fakeScheduler{ran: make(chan string, 1)}
	host := &fakeSourceHost{handle: &fakeHandle{}}
	ctrl := New(host, &fakeIdentifier{repo: repo}, store, sched, &fakeGenerator{called: make(chan string, 1)}, fakeEmbedder{}, 4, slog.Default())
	defer ctrl.Stop()

	jobID, repoID, err := ctrl.EnqueueRepo(context.Background(), "owner-1", "https://github.com/owner/repo")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)
	assert.Equal(t, "repo-1", repoID)

	select {
	case ranID := <-sched.ran:
		assert.Equal(t, "repo-1", ranID)
	case <-time.After(time.Second):
		t.Fatal("scheduler never ran")
	}

	stored, err := store.GetRepository(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, "repo-1", stored.ID)
}

func TestEnqueueRepo_MarksRepositoryInProgressThenFailed(t *testing.T) {
	repo := &docmodel.Repository{
		ID:        "repo-1",
		RootDocID: "root",
		Docs:      map[string]docmodel.Document{"root": {ID: "root", Kind: docmodel.KindDirectory}},
	}
	store := newMemStore()
	sched := &fakeFailingScheduler{done: make(chan struct{})}
	host := &fakeSourceHost{handle: &fakeHandle{}}
	ctrl := New(host, &fakeIdentifier{repo: repo}, store, sched, &fakeGenerator{called: make(chan string, 1)}, fakeEmbedder{}, 4, slog.Default())
	defer ctrl.Stop()

	_, repoID, err := ctrl.EnqueueRepo(context.Background(), "owner-1", "https://github.com/owner/repo")
	require.NoError(t, err)

	stored, err := store.GetRepository(context.Background(), repoID)
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusInProgress, stored.Status)

	select {
	case <-sched.done:
	case <-time.After(time.Second):
		t.Fatal("scheduler never ran")
	}

	require.Eventually(t, func() bool {
		stored, err := store.GetRepository(context.Background(), repoID)
		return err == nil && stored.Status == docmodel.StatusFailed
	}, time.Second, 10*time.Millisecond)
}

func TestEnqueueFileDoc_ParsesBlobURL(t *testing.T) {
	store := newMemStore()
	gen := &fakeGenerator{called: make(chan string, 1)}
	host := &fakeSourceHost{handle: &fakeHandle{}}
	ctrl := New(host, &fakeIdentifier{}, store, &fakeScheduler{ran: make(chan string, 1)}, gen, fakeEmbedder{}, 4, slog.Default())
	defer ctrl.Stop()

	_, docID, err := ctrl.EnqueueFileDoc(context.Background(), "owner-1", "https://github.com/owner/repo/blob/main/internal/foo.go")
	require.NoError(t, err)

	select {
	case calledID := <-gen.called:
		assert.Equal(t, docID, calledID)
	case <-time.After(time.Second):
		t.Fatal("generator never ran")
	}

	doc, err := store.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, "internal/foo.go", doc.RelativePath)
	assert.Equal(t, "https://github.com/owner/repo", doc.SourceURL)
}

func TestSplitFileURL_RejectsNonBlobURL(t *testing.T) {
	_, _, err := splitFileURL("https://github.com/owner/repo")
	require.Error(t, err)
}

func TestStatus_ReadsFromStore(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.CreateRepository(context.Background(), &docmodel.Repository{ID: "repo-1", Status: docmodel.StatusInProgress}))
	ctrl := New(nil, nil, store, nil, nil, fakeEmbedder{}, 1, slog.Default())
	defer ctrl.Stop()

	status, err := ctrl.Status(context.Background(), "repo-1")
	require.NoError(t, err)
	assert.Equal(t, docmodel.StatusInProgress, status)
}
