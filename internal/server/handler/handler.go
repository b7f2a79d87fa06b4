// Package handler provides HTTP handlers for the docwarden API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docwarden/docwarden/internal/docmodel"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// writeError maps err to an HTTP status following the error handling
// design's category table and writes a JSON error body. Kept as one place
// so handlers never decide status codes themselves.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := errorToStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("unhandled request error", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func errorToStatus(err error) int {
	switch {
	case errors.Is(err, docmodel.ErrInvalidURL), errors.Is(err, docmodel.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, docmodel.ErrUnauthenticated), errors.Is(err, docmodel.ErrNotOwner):
		return http.StatusUnauthorized
	case errors.Is(err, docmodel.ErrBusy), errors.Is(err, docmodel.ErrNamespaceConflict):
		return http.StatusBadRequest
	case errors.Is(err, docmodel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, docmodel.ErrUnsupportedKind):
		return http.StatusInternalServerError
	case errors.Is(err, docmodel.ErrUpstreamIO):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ownerIDFunc extracts the caller's owner id from a request context; the
// concrete extraction (reading the Auth middleware's context value) lives in
// internal/server so this package never depends on it directly.
type ownerIDFunc func(ctx context.Context) string

// decodeJSON decodes the request body into v, reporting docmodel.ErrEmptyInput
// on a malformed or empty payload.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return docmodel.ErrEmptyInput
	}
	return nil
}
