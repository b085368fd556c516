package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/ecofinds/internal/domain"
)

type ctxKey int

const identityKey ctxKey = iota

type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// AuthMiddleware verifies the bearer identity token and stores the caller identity in the context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			id, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid identity token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok && id.UID != ""
}

// requireUser returns the caller uid or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false
	}
	return id.UID, true
}
