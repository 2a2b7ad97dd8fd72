package middleware

import (
	"log/slog"
	"net/http"

	dErrors "idproof/pkg/domain-errors"
	"idproof/internal/platform/secrets"
	"idproof/pkg/platform/httputil"
)

const apiKeyHeader = "X-API-Key"

// RequireAPIKey authenticates relying clients against a bcrypt hash of the
// shared API key. An empty hash disables the check (development only) and is
// logged loudly at startup by main, not here.
func RequireAPIKey(apiKeyHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing API key"))
				return
			}
			if err := secrets.Verify(key, apiKeyHash); err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "rejected API key", "remote_addr", r.RemoteAddr)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
