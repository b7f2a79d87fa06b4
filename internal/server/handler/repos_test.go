package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/agent"
	"github.com/docwarden/docwarden/internal/docmodel"
)

type fakeRepoController struct {
	repo  *docmodel.Repository
	repos []*docmodel.Repository
	doc   *docmodel.Document
}

func (f *fakeRepoController) EnqueueRepo(context.Context, string, string) (string, string, error) {
	return "job-1", "repo-1", nil
}
func (f *fakeRepoController) Identify(context.Context, string, string) (*docmodel.Repository, error) {
	return f.repo, nil
}
func (f *fakeRepoController) GenerateRepo(context.Context, string) (string, error) { return "job-1", nil }
func (f *fakeRepoController) Repositories(context.Context, string) ([]*docmodel.Repository, error) {
	return f.repos, nil
}
func (f *fakeRepoController) Repository(context.Context, string, string) (*docmodel.Repository, error) {
	return f.repo, nil
}
func (f *fakeRepoController) DeleteRepo(context.Context, string, string) error { return nil }
func (f *fakeRepoController) Document(context.Context, string) (*docmodel.Document, error) {
	return f.doc, nil
}

type fakeSearcher struct{ hits []agent.SearchHit }

func (f *fakeSearcher) Search(context.Context, string, string, int) ([]agent.SearchHit, error) {
	return f.hits, nil
}

func testOwnerID(context.Context) string { return "owner-1" }

func TestRepoHandler_Create(t *testing.T) {
	h := NewRepoHandler(&fakeRepoController{}, &fakeSearcher{}, testOwnerID, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/repos", strings.NewReader(`{"github_url":"https://github.com/owner/repo"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "repo-1")
}

func TestRepoHandler_Create_RejectsEmptyURL(t *testing.T) {
	h := NewRepoHandler(&fakeRepoController{}, &fakeSearcher{}, testOwnerID, 5, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/repos", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepoHandler_Get(t *testing.T) {
	repo := &docmodel.Repository{
		ID: "repo-1", Name: "repo", OwnerID: "owner-1", RootDocID: "root", Status: docmodel.StatusCompleted,
		Docs: map[string]docmodel.Document{"root": {ID: "root", RelativePath: ".", Kind: docmodel.KindDirectory, Status: docmodel.StatusCompleted}},
	}
	h := NewRepoHandler(&fakeRepoController{repo: repo}, &fakeSearcher{}, testOwnerID, 5, testLogger())

	r := chi.NewRouter()
	r.Get("/repos/{repo_id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/repos/repo-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"repo"`)
}

func TestRepoHandler_GetDocument_RejectsMismatch(t *testing.T) {
	doc := &docmodel.Document{ID: "doc-1", RepoID: "repo-other", RelativePath: "a.go"}
	h := NewRepoHandler(&fakeRepoController{doc: doc}, &fakeSearcher{}, testOwnerID, 5, testLogger())

	r := chi.NewRouter()
	r.Get("/repos/{repo_id}/{doc_id}", h.GetDocument)

	req := httptest.NewRequest(http.MethodGet, "/repos/repo-1/doc-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRepoHandler_Search(t *testing.T) {
	hits := []agent.SearchHit{{DocID: "doc-1", Content: "chunk", Score: 0.9}}
	h := NewRepoHandler(&fakeRepoController{}, &fakeSearcher{hits: hits}, testOwnerID, 5, testLogger())

	r := chi.NewRouter()
	r.Get("/repos/{repo_id}/search", h.Search)

	req := httptest.NewRequest(http.MethodGet, "/repos/repo-1/search?query=foo", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"doc_id":"doc-1"`)
}

func TestRepoHandler_Search_RejectsEmptyQuery(t *testing.T) {
	h := NewRepoHandler(&fakeRepoController{}, &fakeSearcher{}, testOwnerID, 5, testLogger())

	r := chi.NewRouter()
	r.Get("/repos/{repo_id}/search", h.Search)

	req := httptest.NewRequest(http.MethodGet, "/repos/repo-1/search", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
