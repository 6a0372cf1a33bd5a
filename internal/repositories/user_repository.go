package repositories

import (
	"context"
	"fmt"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, username, password_hash, display_name, weight_kg
		) VALUES (
			$1, $2, $3, $4, $5
		) RETURNING id, is_active, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash,
		user.DisplayName, user.WeightKG,
	).Scan(
		&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if r.IsUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", ErrDuplicate)
		}
		r.GetLogger().Error("failed to create user",
			zap.Error(err),
			zap.String("username", user.Username),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.GetLogger().Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)

	return nil
}

const userColumns = `
	id, email, username, password_hash, is_active,
	display_name, avatar_url, avatar_public_id, weight_kg,
	created_at, updated_at`

func (r *userRepository) scanUser(scan func(dest ...interface{}) error) (*models.User, error) {
	var user models.User
	err := scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.IsActive,
		&user.DisplayName, &user.AvatarURL, &user.AvatarPublicID, &user.WeightKG,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves an active user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`
	user, err := r.scanUser(r.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves an active user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND is_active = true`
	user, err := r.scanUser(r.QueryRowContext(ctx, query, email).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves an active user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1) AND is_active = true`
	user, err := r.scanUser(r.QueryRowContext(ctx, query, username).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// Update updates mutable profile fields
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			display_name = $1,
			weight_kg = $2,
			updated_at = NOW()
		WHERE id = $3 AND is_active = true
		RETURNING updated_at`

	err := r.QueryRowContext(ctx, query, user.DisplayName, user.WeightKG, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if r.IsNotFound(err) {
			return fmt.Errorf("user %d not found: %w", user.ID, err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// UpdateAvatar stores the uploaded avatar location
func (r *userRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL, publicID string) error {
	query := `
		UPDATE users SET
			avatar_url = $1,
			avatar_public_id = $2,
			updated_at = NOW()
		WHERE id = $3 AND is_active = true`

	result, err := r.ExecContext(ctx, query, avatarURL, publicID, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d not found", userID)
	}

	return nil
}

// GetProfileCounts returns badge and activity counts for a profile view
func (r *userRepository) GetProfileCounts(ctx context.Context, userID int64) (int, int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM user_badges WHERE user_id = $1),
			(SELECT COUNT(*) FROM activities WHERE user_id = $1)`

	var badges, activities int
	if err := r.QueryRowContext(ctx, query, userID).Scan(&badges, &activities); err != nil {
		return 0, 0, fmt.Errorf("failed to get profile counts: %w", err)
	}

	return badges, activities, nil
}
