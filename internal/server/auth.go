package server

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// ownerIDFromContext returns the caller's opaque owner id, set by Auth.
func ownerIDFromContext(ctx context.Context) string {
	ownerID, _ := ctx.Value(ownerIDKey).(string)
	return ownerID
}

// Auth checks the Authorization header against sharedSecret and extracts the
// caller's owner id from the remainder of the token. A valid token has the
// shape "<sharedSecret>.<owner_id>"; multi-tenant identity is out of scope,
// so the token itself names the tenant rather than a separate user store.
func Auth(sharedSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			secret, ownerID, found := strings.Cut(token, ".")
			if !found || secret != sharedSecret || ownerID == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
