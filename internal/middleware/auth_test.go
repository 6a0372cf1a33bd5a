package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// mockAuthService validates a single known token
type mockAuthService struct {
	validToken string
	userID     int64
}

func (m *mockAuthService) Register(ctx context.Context, req *services.RegisterRequest) (*services.AuthResult, error) {
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, req *services.LoginRequest) (*services.AuthResult, error) {
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}

func (m *mockAuthService) ValidateAccessToken(tokenString string) (*services.AccessClaims, error) {
	if tokenString == m.validToken {
		return &services.AccessClaims{UserID: m.userID}, nil
	}
	return nil, services.NewUnauthorizedError("invalid access token")
}

func echoUserID(t *testing.T, gotUserID *int64) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUserID = contextutils.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()
	builder := response.NewBuilder(response.DefaultConfig(), logger)
	authSvc := &mockAuthService{validToken: "good-token", userID: 42}
	requireAuth := RequireAuth(authSvc, builder, logger)

	t.Run("valid token passes with user on context", func(t *testing.T) {
		var gotUserID int64
		handler := requireAuth(echoUserID(t, &gotUserID))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), gotUserID)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		var gotUserID int64
		handler := requireAuth(echoUserID(t, &gotUserID))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, gotUserID)
	})

	t.Run("bad token is unauthorized", func(t *testing.T) {
		var gotUserID int64
		handler := requireAuth(echoUserID(t, &gotUserID))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		handler := requireAuth(echoUserID(t, new(int64)))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	authSvc := &mockAuthService{validToken: "good-token", userID: 42}
	optionalAuth := OptionalAuth(authSvc)

	t.Run("anonymous request passes through", func(t *testing.T) {
		var gotUserID int64
		handler := optionalAuth(echoUserID(t, &gotUserID))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, gotUserID)
	})

	t.Run("valid token resolves the user", func(t *testing.T) {
		var gotUserID int64
		handler := optionalAuth(echoUserID(t, &gotUserID))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), gotUserID)
	})

	t.Run("invalid token is treated as anonymous", func(t *testing.T) {
		var gotUserID int64
		handler := optionalAuth(echoUserID(t, &gotUserID))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
		req.Header.Set("Authorization", "Bearer expired")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, gotUserID)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"empty header", "", ""},
		{"scheme only", "Bearer", ""},
		{"wrong scheme", "Basic abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(r))
		})
	}
}
