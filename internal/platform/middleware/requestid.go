package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"idproof/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation ID and a request-scoped
// timestamp. An inbound X-Request-ID is honored so upstream proxies can
// correlate; otherwise a fresh UUID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
