package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"thetrek/internal/config"
	"thetrek/internal/events"
	"thetrek/internal/models"
	"thetrek/internal/repositories"
	"thetrek/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest carries signup fields
type RegisterRequest struct {
	Email       string   `json:"email" validate:"required,email,max=320"`
	Username    string   `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	DisplayName string   `json:"display_name" validate:"omitempty,max=100"`
	WeightKG    *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=500"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is the issued credential set
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResult bundles the user with the issued tokens
type AuthResult struct {
	User   *models.User `json:"user"`
	Tokens *TokenPair   `json:"tokens"`
}

// AccessClaims are the custom JWT claims for access tokens
type AccessClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and the token lifecycle
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)

	// Refresh rotates the refresh token: the presented token is
	// revoked and a fresh pair is issued.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Logout revokes the presented refresh token
	Logout(ctx context.Context, refreshToken string) error

	// ValidateAccessToken parses and verifies an access token
	ValidateAccessToken(tokenString string) (*AccessClaims, error)
}

type authService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.TokenRepository
	eventBus  events.EventBus
	config    *config.AuthConfig
	logger    *zap.Logger
}

// NewAuthService creates the auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	eventBus events.EventBus,
	cfg *config.AuthConfig,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		eventBus:  eventBus,
		config:    cfg,
		logger:    logger,
	}
}

// Register creates a user and issues a first token pair
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid registration", err)
	}

	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err != nil {
		return nil, NewInternalError("failed to check email")
	} else if existing != nil {
		return nil, EntityAlreadyExistsError("user", "email", req.Email)
	}

	if existing, err := s.userRepo.GetByUsername(ctx, req.Username); err != nil {
		return nil, NewInternalError("failed to check username")
	} else if existing != nil {
		return nil, EntityAlreadyExistsError("user", "username", req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, NewInternalError("failed to hash password")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		WeightKG:     req.WeightKG,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// The pre-checks race with concurrent registrations; the unique
		// indexes are the source of truth.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, NewConflictError("email or username already taken", "ENTITY_ALREADY_EXISTS")
		}
		return nil, NewInternalError("failed to create user")
	}

	if s.eventBus != nil {
		event := events.NewUserCreatedEvent(user.ID, user.Email, user.Username)
		if err := s.eventBus.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("failed to publish user created event", zap.Error(err))
		}
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login verifies credentials and issues a token pair
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid login", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewUnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewUnauthorizedError("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates the refresh token
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, NewUnauthorizedError("refresh token required")
	}

	hash := hashToken(refreshToken)
	stored, err := s.tokenRepo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		return nil, NewInternalError("failed to load refresh token")
	}
	if stored == nil {
		return nil, NewUnauthorizedError("invalid or expired refresh token")
	}
	if !stored.Valid(time.Now()) {
		// A rotated token coming back means it leaked or was replayed.
		// Cut every session for the user.
		if stored.RevokedAt != nil {
			if err := s.tokenRepo.RevokeAllForUser(ctx, stored.UserID); err != nil {
				s.logger.Error("failed to revoke user sessions",
					zap.Int64("user_id", stored.UserID),
					zap.Error(err),
				)
			} else {
				s.logger.Warn("refresh token reuse detected, all sessions revoked",
					zap.Int64("user_id", stored.UserID),
				)
			}
		}
		return nil, NewUnauthorizedError("invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewUnauthorizedError("user no longer active")
	}

	if err := s.tokenRepo.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, NewInternalError("failed to rotate refresh token")
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token. Unknown tokens are a
// no-op so logout is idempotent.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.tokenRepo.RevokeRefreshToken(ctx, hashToken(refreshToken)); err != nil {
		return NewInternalError("failed to revoke refresh token")
	}

	return nil
}

// ValidateAccessToken parses and verifies an access token
func (s *authService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, NewUnauthorizedError("invalid access token")
	}

	return claims, nil
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := &AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "thetrek",
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, NewInternalError("failed to sign access token")
	}

	refresh, err := generateOpaqueToken()
	if err != nil {
		return nil, NewInternalError("failed to generate refresh token")
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.config.RefreshTokenTTL),
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, record); err != nil {
		return nil, NewInternalError("failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
