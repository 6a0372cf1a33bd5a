package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// RequireAuth rejects requests without a valid Bearer token and puts
// the authenticated user ID on the context.
func RequireAuth(authService services.AuthService, builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				builder.WriteError(w, r, services.NewUnauthorizedError("missing authorization token"))
				return
			}

			claims, err := authService.ValidateAccessToken(token)
			if err != nil {
				logger.Debug("token validation failed",
					zap.String("request_id", contextutils.GetRequestID(r.Context())),
					zap.Error(err))
				builder.WriteError(w, r, services.NewUnauthorizedError("invalid or expired token"))
				return
			}

			ctx := contextutils.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the user ID when a valid token is present but
// lets anonymous requests through. Used on public read endpoints that
// personalize their output.
func OptionalAuth(authService services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractBearerToken(r); token != "" {
				if claims, err := authService.ValidateAccessToken(token); err == nil {
					r = r.WithContext(contextutils.WithUserID(r.Context(), claims.UserID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
