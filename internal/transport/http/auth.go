package http

import (
	"context"
	"net/http"

	"github.com/cimillas/rentbook/internal/domain"
)

const (
	userIDHeader   = "X-User-Id"
	userRoleHeader = "X-User-Role"
)

type principalKey struct{}

// Principal reads the pre-authenticated caller identity injected by the
// auth layer in front of this service. Requests without one are rejected;
// this core never re-derives identity.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(userIDHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing authenticated principal")
			return
		}
		p := domain.Principal{
			ID:   id,
			Role: domain.Role(r.Header.Get(userRoleHeader)),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// requirePrincipal writes the 401 itself when the middleware was bypassed.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing authenticated principal")
	}
	return p, ok
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return domain.Principal{}, false
	}
	if !p.IsAdmin() {
		writeError(w, http.StatusForbidden, codeForbidden, "admin role required")
		return domain.Principal{}, false
	}
	return p, true
}
