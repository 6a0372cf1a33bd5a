package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"thetrek/internal/contextutils"
)

const (
	// HeaderXRequestID carries the correlation ID between services
	HeaderXRequestID = "X-Request-ID"
)

// RequestID injects a correlation ID into each request. An incoming
// X-Request-ID header is honored so IDs survive proxy hops.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				if id, err := uuid.NewV4(); err == nil {
					requestID = id.String()
				} else {
					requestID = generateFallbackID(time.Now())
				}
			}

			w.Header().Set(HeaderXRequestID, requestID)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// generateFallbackID builds a timestamp-based ID when UUID generation
// fails. Collisions are acceptable here, the ID is for log correlation.
func generateFallbackID(t time.Time) string {
	return fmt.Sprintf("req_%d", t.UnixNano())
}

// getClientIP extracts the client IP, honoring proxy headers.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
