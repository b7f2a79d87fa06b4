package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/docmodel"
	"github.com/docwarden/docwarden/internal/sourcehost"
)

type fakeStatusUpdater struct {
	lastStatus docmodel.Status
}

func (f *fakeStatusUpdater) UpdateRepositoryStatus(_ context.Context, _ string, status docmodel.Status) error {
	f.lastStatus = status
	return nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
}

func (f *fakeGenerator) Generate(_ context.Context, _ sourcehost.Handle, _ *docmodel.Repository, docID string) error {
	f.mu.Lock()
	f.calls = append(f.calls, docID)
	f.mu.Unlock()
	if docID == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func testRepo() *docmodel.Repository {
	return &docmodel.Repository{
		ID:        "repo-1",
		RootDocID: "root",
		Docs: map[string]docmodel.Document{
			"root": {ID: "root", Kind: docmodel.KindDirectory},
			"a":    {ID: "a", Kind: docmodel.KindFile},
			"b":    {ID: "b", Kind: docmodel.KindFile},
		},
		Dependencies: map[string]string{
			"a": "root",
			"b": "root",
		},
	}
}

func TestBuildIndegree(t *testing.T) {
	repo := testRepo()
	remaining := buildIndegree(repo)
	assert.Equal(t, 2, remaining["root"])
	assert.Equal(t, 0, remaining["a"])
	assert.Equal(t, 0, remaining["b"])
}

func TestReadyNodes(t *testing.T) {
	ready := readyNodes(map[string]int{"a": 0, "b": 0, "root": 2})
	assert.ElementsMatch(t, []string{"a", "b"}, ready)
}

func TestScheduler_Run_ProcessesInTopologicalOrder(t *testing.T) {
	repo := testRepo()
	gen := &fakeGenerator{}
	store := &fakeStatusUpdater{}
	sched := New(store, gen, 10, slog.Default())

	err := sched.Run(context.Background(), nil, repo)
	require.NoError(t, err)

	require.Len(t, gen.calls, 3)
	assert.Contains(t, gen.calls, "a")
	assert.Contains(t, gen.calls, "b")
	assert.Equal(t, "root", gen.calls[2])
	assert.Equal(t, docmodel.StatusCompleted, store.lastStatus)
}

func TestScheduler_Run_AbortsOnFirstError(t *testing.T) {
	repo := testRepo()
	gen := &fakeGenerator{failOn: "a"}
	store := &fakeStatusUpdater{}
	sched := New(store, gen, 10, slog.Default())

	err := sched.Run(context.Background(), nil, repo)
	require.Error(t, err)
	assert.NotContains(t, gen.calls, "root")
}
