package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/auth"
	"github.com/copypaster/server/internal/shared"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user's id set by the auth
// middleware, or "" if the request was not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authMiddleware resolves the Bearer token into a user id and stores it in
// the request context. Requests without a valid token never reach handlers.
func authMiddleware(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, shared.ErrorUnauthorized)
				return
			}

			userID, err := auth.GetUserIDFromToken(token, secretKey)
			if err != nil {
				respondError(w, shared.ErrorInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info(r.Context(), "request handled",
				"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
		})
	}
}
