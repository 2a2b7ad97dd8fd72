package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"idproof/pkg/requestcontext"
)

// ClientMetadata records the caller's IP, raw User-Agent, and a parsed
// device summary on the request context. The device summary ends up in the
// audit trail so disputes can be tied to the submitting device.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), ua)
		ctx = requestcontext.WithDevice(ctx, deviceSummary(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deviceSummary(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	parsed := useragent.New(rawUA)
	browser, _ := parsed.Browser()
	os := parsed.OS()
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "unknown"
	}
}
