// Package request provides the outermost middleware: it pins request time,
// assigns a correlation ID, and captures client metadata before any security
// stage runs.
package request

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"sanctum/pkg/requestcontext"
)

// HeaderRequestID carries an inbound correlation ID; one is generated when absent.
const HeaderRequestID = "X-Request-ID"

// Middleware stores a single "now", the request ID, client IP and User-Agent on
// the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithClientMetadata(ctx, ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP extracts the originating client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// IsConfidential reports whether the request arrived over TLS, directly or via
// a terminating proxy.
func IsConfidential(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
