package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"task-console/internal/store"
)

type ctxKey struct{}

// caller returns the account authenticated by requireAuth.
func caller(ctx context.Context) *store.Account {
	a, _ := ctx.Value(ctxKey{}).(*store.Account)
	return a
}

// requireAuth resolves the bearer token to an account. A missing or unknown
// token is rejected with code "401" so clients can tell expiry apart.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Full authentication is required to access this resource")
			return
		}
		email, err := s.store.TokenOwner(r.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Token expired or invalid")
			return
		}
		if err != nil {
			log.Printf("api: token lookup: %v", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		acct, err := s.store.AccountByEmail(r.Context(), email)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token expired or invalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acct)))
	})
}

// adminOnly rejects non-admin callers with 403.
func (s *Server) adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a := caller(r.Context()); a == nil || !a.Role.IsAdmin() {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		h(w, r)
	}
}
