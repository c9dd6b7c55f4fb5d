package middleware

import (
	"context"
	"crypto/subtle"
	"docingest/internal/models"
	utils "docingest/internal/utils/http_errors"
	"log/slog"
	"net/http"
	"strings"
)

// Auth resolves the session token from the "token" query parameter or a
// bearer Authorization header and stores the user in the request context.
func Auth(log *slog.Logger, storer SessionStorer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op := pkg + "Auth"

			log := log.With(slog.String("op", op))

			token := r.URL.Query().Get("token")
			if token == "" {
				token = BearerToken(r)
			}

			requester, err := storer.UserByToken(r.Context(), token)
			if err != nil {
				log.Warn("failed get user by token", slog.String("error", err.Error()))
				utils.WriteJSONError(w, http.StatusForbidden, "token is invalid")
				return
			}

			ctx := context.WithValue(r.Context(), models.UserContextKey, requester)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminToken guards operator routes. An empty token leaves the route open.
func AdminToken(log *slog.Logger, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op := pkg + "AdminToken"

			got := BearerToken(r)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn("admin token mismatch", slog.String("op", op), slog.String("path", r.URL.Path))
				utils.WriteJSONError(w, http.StatusForbidden, models.ErrForbidden.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
