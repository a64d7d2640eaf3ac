package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tally/internal/core"
)

type contextKey string

const userContextKey contextKey = "user"

// withUser resolves the bearer token to a user and stores it on the request
// context. Every /api/v1 route runs behind it; token issuance happens out of
// band.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := s.store.GetUserByToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			slog.ErrorContext(r.Context(), "Token lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func userFrom(r *http.Request) core.User {
	user, _ := r.Context().Value(userContextKey).(core.User)
	return user
}
