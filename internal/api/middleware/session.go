package middleware

import (
	"context"
	"net/http"

	"github.com/deepgram/studio/internal/services/session"
	"github.com/deepgram/studio/pkg/httpext"
	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// Session makes sure every request carries a session cookie and stores the
// session id in the request context
func Session(sessionService *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionService.EnsureSession(w, r)
			if err != nil {
				log.Error().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Failed to establish session")
				httpext.JsonError(w, "Failed to establish session", http.StatusInternalServerError)
				return
			}

			ctx := WithSessionID(r.Context(), claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSessionID returns a copy of ctx carrying sessionID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionID retrieves the session id from the request context
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
