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

	"github.com/docwarden/docwarden/internal/docmodel"
)

type fakeFileDocController struct {
	doc     *docmodel.Document
	busyErr error
}

func (f *fakeFileDocController) EnqueueFileDoc(context.Context, string, string) (string, string, error) {
	return "job-1", "doc-1", nil
}
func (f *fakeFileDocController) RegenerateDoc(context.Context, string, string) (string, error) {
	if f.busyErr != nil {
		return "", f.busyErr
	}
	return "job-1", nil
}
func (f *fakeFileDocController) DeleteDoc(context.Context, string, string) error { return f.busyErr }
func (f *fakeFileDocController) Document(context.Context, string) (*docmodel.Document, error) {
	return f.doc, nil
}

func TestFileDocHandler_Create(t *testing.T) {
	h := NewFileDocHandler(&fakeFileDocController{}, testOwnerID, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/file-docs", strings.NewReader(`{"github_url":"https://github.com/owner/repo/blob/main/a.go"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "doc-1")
}

func TestFileDocHandler_Regenerate_RejectsBusy(t *testing.T) {
	h := NewFileDocHandler(&fakeFileDocController{busyErr: docmodel.ErrBusy}, testOwnerID, testLogger())

	r := chi.NewRouter()
	r.Put("/file-docs/{doc_id}", h.Regenerate)

	req := httptest.NewRequest(http.MethodPut, "/file-docs/doc-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileDocHandler_Delete(t *testing.T) {
	h := NewFileDocHandler(&fakeFileDocController{}, testOwnerID, testLogger())

	r := chi.NewRouter()
	r.Delete("/file-docs/{doc_id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/file-docs/doc-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "doc-1")
}
