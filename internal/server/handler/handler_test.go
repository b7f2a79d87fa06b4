package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docwarden/docwarden/internal/docmodel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid url", docmodel.ErrInvalidURL, http.StatusBadRequest},
		{"empty input", docmodel.ErrEmptyInput, http.StatusBadRequest},
		{"not owner", docmodel.ErrNotOwner, http.StatusUnauthorized},
		{"busy", docmodel.ErrBusy, http.StatusBadRequest},
		{"namespace conflict", docmodel.ErrNamespaceConflict, http.StatusBadRequest},
		{"not found", docmodel.ErrNotFound, http.StatusNotFound},
		{"upstream io", docmodel.ErrUpstreamIO, http.StatusBadGateway},
		{"unsupported kind", docmodel.ErrUnsupportedKind, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorToStatus(tt.err))
		})
	}
}
