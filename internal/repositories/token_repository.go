package repositories

import (
	"context"
	"fmt"
	"time"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type tokenRepository struct {
	*BaseRepository
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.Manager, logger *zap.Logger) TokenRepository {
	return &tokenRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// CreateRefreshToken stores a hashed refresh token
func (r *tokenRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

// GetRefreshTokenByHash looks up a refresh token by its hash
func (r *tokenRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var t models.RefreshToken
	err := r.QueryRowContext(ctx, query, tokenHash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.RevokedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &t, nil
}

// RevokeRefreshToken marks a token revoked
func (r *tokenRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL`

	if _, err := r.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every live token a user holds
func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`

	if _, err := r.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	return nil
}

// DeleteExpired removes tokens past expiry. Run periodically.
func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		r.GetLogger().Info("expired refresh tokens deleted", zap.Int64("count", deleted))
	}

	return deleted, nil
}

// UpsertGoogleFitToken stores or replaces a user's Google Fit credentials
func (r *tokenRepository) UpsertGoogleFitToken(ctx context.Context, token *models.GoogleFitToken) error {
	query := `
		INSERT INTO googlefit_tokens (
			user_id, access_token, refresh_token, token_type, expiry
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE
				WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token
				ELSE googlefit_tokens.refresh_token
			END,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		token.UserID, token.AccessToken, token.RefreshToken, token.TokenType, token.Expiry,
	).Scan(&token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert googlefit token: %w", err)
	}

	return nil
}

// GetGoogleFitToken retrieves a user's Google Fit credentials
func (r *tokenRepository) GetGoogleFitToken(ctx context.Context, userID int64) (*models.GoogleFitToken, error) {
	query := `
		SELECT user_id, access_token, refresh_token, token_type, expiry,
			last_synced_at, created_at, updated_at
		FROM googlefit_tokens
		WHERE user_id = $1`

	var t models.GoogleFitToken
	err := r.QueryRowContext(ctx, query, userID).Scan(
		&t.UserID, &t.AccessToken, &t.RefreshToken, &t.TokenType, &t.Expiry,
		&t.LastSyncedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get googlefit token: %w", err)
	}

	return &t, nil
}

// UpdateGoogleFitSyncTime records a completed sync
func (r *tokenRepository) UpdateGoogleFitSyncTime(ctx context.Context, userID int64, syncedAt time.Time) error {
	query := `
		UPDATE googlefit_tokens
		SET last_synced_at = $1, updated_at = NOW()
		WHERE user_id = $2`

	if _, err := r.ExecContext(ctx, query, syncedAt, userID); err != nil {
		return fmt.Errorf("failed to update sync time: %w", err)
	}

	return nil
}

// DeleteGoogleFitToken disconnects a user from Google Fit
func (r *tokenRepository) DeleteGoogleFitToken(ctx context.Context, userID int64) error {
	if _, err := r.ExecContext(ctx, `DELETE FROM googlefit_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete googlefit token: %w", err)
	}

	return nil
}
