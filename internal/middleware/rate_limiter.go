package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/cache"
	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// RateLimiterConfig holds rate limiting configuration
type RateLimiterConfig struct {
	Requests int           // allowed requests per window
	Window   time.Duration // window size
	KeyFunc  func(r *http.Request) string
}

// DefaultRateLimiterConfig limits by client IP, 100 requests a minute.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Requests: 100,
		Window:   time.Minute,
		KeyFunc: func(r *http.Request) string {
			return getClientIP(r)
		},
	}
}

// AuthRateLimiterConfig is the stricter limit for credential endpoints.
func AuthRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc: func(r *http.Request) string {
			return getClientIP(r)
		},
	}
}

// RateLimit enforces a fixed-window counter backed by the cache. When
// the cache is down requests pass through, availability wins over
// strictness here.
func RateLimit(c cache.Cache, config *RateLimiterConfig, builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window := time.Now().Unix() / int64(config.Window.Seconds())
			key := fmt.Sprintf("ratelimit:%s:%s:%d", r.URL.Path, config.KeyFunc(r), window)

			count, err := c.Increment(r.Context(), key, 1, config.Window)
			if err != nil {
				logger.Warn("rate limit counter unavailable",
					zap.String("request_id", contextutils.GetRequestID(r.Context())),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(config.Requests) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.Requests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if count > int64(config.Requests) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(config.Window.Seconds())))
				builder.WriteError(w, r, services.NewRateLimitError(
					"rate limit exceeded",
					map[string]interface{}{
						"limit":          config.Requests,
						"window_seconds": int(config.Window.Seconds()),
					},
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
