package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"ejiview/internal/infrastructure"
)

type apiClientKey struct{}

// APIKeyAuth requires an X-API-Key header (or api_key query parameter)
// matching one of validKeys, which maps key to client name. An empty map
// disables the check.
func APIKeyAuth(logger *slog.Logger, validKeys map[string]string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = r.URL.Query().Get("api_key")
			}

			if apiKey == "" {
				logger.WarnContext(ctx, "missing API key",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeProblem(w, http.StatusUnauthorized, "/errors/unauthorized",
					"API key required", infrastructure.GetTraceID(ctx))
				return
			}

			clientName, ok := matchKey(validKeys, apiKey)
			if !ok {
				logger.WarnContext(ctx, "invalid API key",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeProblem(w, http.StatusUnauthorized, "/errors/unauthorized",
					"Invalid API key", infrastructure.GetTraceID(ctx))
				return
			}

			ctx = context.WithValue(ctx, apiClientKey{}, clientName)
			logger.DebugContext(ctx, "API key authentication successful",
				"client", clientName,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchKey compares in constant time against every configured key
func matchKey(validKeys map[string]string, apiKey string) (string, bool) {
	var (
		client string
		found  bool
	)
	for key, name := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			client, found = name, true
		}
	}
	return client, found
}

// APIClient returns the client name APIKeyAuth stored in ctx
func APIClient(ctx context.Context) string {
	name, _ := ctx.Value(apiClientKey{}).(string)
	return name
}

// AuditLog records who invoked a state-changing endpoint and how it ended
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			client := APIClient(ctx)
			if client == "" {
				client = "anonymous"
			}

			logger.InfoContext(ctx, "audit log",
				"event_type", "api_access",
				"client", client,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			next.ServeHTTP(ww, r)

			logger.InfoContext(ctx, "audit log complete",
				"event_type", "api_response",
				"client", client,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
