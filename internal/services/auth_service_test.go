package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thetrek/internal/config"
	"thetrek/internal/models"
	"thetrek/internal/repositories"
)

type authUserRepo struct {
	mockUserRepo
	nextID    int64
	createErr error
}

func (m *authUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = m.nextID
	if m.users == nil {
		m.users = make(map[int64]*models.User)
	}
	m.users[user.ID] = user
	return nil
}

type mockTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (m *mockTokenRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockTokenRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	return m.tokens[tokenHash], nil
}

func (m *mockTokenRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	if t, ok := m.tokens[tokenHash]; ok {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	now := time.Now()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockTokenRepo) UpsertGoogleFitToken(ctx context.Context, token *models.GoogleFitToken) error {
	return nil
}

func (m *mockTokenRepo) GetGoogleFitToken(ctx context.Context, userID int64) (*models.GoogleFitToken, error) {
	return nil, nil
}

func (m *mockTokenRepo) UpdateGoogleFitSyncTime(ctx context.Context, userID int64, syncedAt time.Time) error {
	return nil
}

func (m *mockTokenRepo) DeleteGoogleFitToken(ctx context.Context, userID int64) error {
	return nil
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret-please-rotate",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		BCryptCost:      4, // minimum cost keeps the tests fast
	}
}

func newTestAuthService() (AuthService, *authUserRepo, *mockTokenRepo) {
	userRepo := &authUserRepo{}
	tokenRepo := newMockTokenRepo()
	svc := NewAuthService(userRepo, tokenRepo, nil, testAuthConfig(), zap.NewNop())
	return svc, userRepo, tokenRepo
}

func registerTestUser(t *testing.T, svc AuthService) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "trekker@example.com",
		Username: "trekker",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return result
}

func TestRegister(t *testing.T) {
	t.Run("creates user and issues tokens", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		result := registerTestUser(t, svc)

		assert.Equal(t, "trekker@example.com", result.User.Email)
		assert.Equal(t, "trekker", result.User.DisplayName) // falls back to username
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
		assert.NotEqual(t, "correct-horse", result.User.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		registerTestUser(t, svc)

		_, err := svc.Register(context.Background(), &RegisterRequest{
			Email:    "trekker@example.com",
			Username: "someoneelse",
			Password: "correct-horse",
		})
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		registerTestUser(t, svc)

		_, err := svc.Register(context.Background(), &RegisterRequest{
			Email:    "other@example.com",
			Username: "trekker",
			Password: "correct-horse",
		})
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
	})

	t.Run("unique index violation maps to a conflict", func(t *testing.T) {
		// Concurrent registrations can slip past the pre-checks; the
		// database constraint still has to surface as a conflict.
		userRepo := &authUserRepo{
			createErr: fmt.Errorf("failed to create user: %w", repositories.ErrDuplicate),
		}
		svc := NewAuthService(userRepo, newMockTokenRepo(), nil, testAuthConfig(), zap.NewNop())

		_, err := svc.Register(context.Background(), &RegisterRequest{
			Email:    "trekker@example.com",
			Username: "trekker",
			Password: "correct-horse",
		})
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
	})

	t.Run("short password rejected", func(t *testing.T) {
		svc, _, _ := newTestAuthService()

		_, err := svc.Register(context.Background(), &RegisterRequest{
			Email:    "trekker@example.com",
			Username: "trekker",
			Password: "short",
		})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		registerTestUser(t, svc)

		result, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "trekker@example.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Tokens.AccessToken)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		registerTestUser(t, svc)

		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "trekker@example.com",
			Password: "wrong-horse",
		})
		require.Error(t, err)
		assert.Equal(t, ErrorTypeUnauthorized, GetServiceError(err).Type)
	})

	t.Run("unknown email gets the same error as a bad password", func(t *testing.T) {
		svc, _, _ := newTestAuthService()

		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email or password")
	})
}

func TestRefreshRotation(t *testing.T) {
	svc, _, tokenRepo := newTestAuthService()
	result := registerTestUser(t, svc)
	original := result.Tokens.RefreshToken

	pair, err := svc.Refresh(context.Background(), original)
	require.NoError(t, err)
	assert.NotEqual(t, original, pair.RefreshToken)

	// Exactly one live token remains after rotation
	assert.Equal(t, 1, countLiveTokens(tokenRepo))

	// Redeeming the rotated-out token again is rejected, and as reuse
	// detection every remaining session is revoked too
	_, err = svc.Refresh(context.Background(), original)
	require.Error(t, err)
	assert.Equal(t, 0, countLiveTokens(tokenRepo))

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
}

func countLiveTokens(repo *mockTokenRepo) int {
	live := 0
	for _, tok := range repo.tokens {
		if tok.Valid(time.Now()) {
			live++
		}
	}
	return live
}

func TestValidateAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService()
	result := registerTestUser(t, svc)

	t.Run("round trip", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(result.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, claims.UserID)
		assert.Equal(t, "trekker", claims.Username)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.jwt")
		require.Error(t, err)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		other := NewAuthService(&authUserRepo{}, newMockTokenRepo(), nil,
			&config.AuthConfig{
				JWTSecret:       "different-secret",
				AccessTokenTTL:  15 * time.Minute,
				RefreshTokenTTL: time.Hour,
				BCryptCost:      4,
			}, zap.NewNop())

		_, err := other.ValidateAccessToken(result.Tokens.AccessToken)
		require.Error(t, err)
	})
}

func TestLogout(t *testing.T) {
	svc, _, _ := newTestAuthService()
	result := registerTestUser(t, svc)

	require.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))

	_, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	require.Error(t, err)

	// Logging out twice, or with an empty token, is fine
	require.NoError(t, svc.Logout(context.Background(), result.Tokens.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), ""))
}
