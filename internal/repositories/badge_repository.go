package repositories

import (
	"context"
	"fmt"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `
	id, name, description, icon, category,
	criteria_type, criteria_value, criteria_target, created_at`

func scanBadge(scan func(dest ...interface{}) error) (*models.Badge, error) {
	var b models.Badge
	err := scan(
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.Category,
		&b.CriteriaType, &b.CriteriaValue, &b.CriteriaTarget, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAll returns the full badge catalog
func (r *badgeRepository) GetAll(ctx context.Context) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges ORDER BY category, criteria_value, id`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}

	return badges, rows.Err()
}

// GetByID retrieves a badge by ID
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE id = $1`

	badge, err := scanBadge(r.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by ID: %w", err)
	}
	return badge, nil
}

// GetUnearnedByUser returns catalog badges the user does not hold yet
func (r *badgeRepository) GetUnearnedByUser(ctx context.Context, userID int64) ([]*models.Badge, error) {
	query := `
		SELECT ` + badgeColumns + `
		FROM badges b
		WHERE NOT EXISTS (
			SELECT 1 FROM user_badges ub
			WHERE ub.badge_id = b.id AND ub.user_id = $1
		)
		ORDER BY b.id`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unearned badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}

	return badges, rows.Err()
}

// GetEarnedByUser returns the user's awards, newest first
func (r *badgeRepository) GetEarnedByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	query := `
		SELECT user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at DESC, badge_id DESC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list earned badges: %w", err)
	}
	defer rows.Close()

	var earned []*models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		if err := rows.Scan(&ub.UserID, &ub.BadgeID, &ub.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		earned = append(earned, &ub)
	}

	return earned, rows.Err()
}

// GetAllWithStatus returns the full catalog annotated with the user's
// earned state
func (r *badgeRepository) GetAllWithStatus(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error) {
	query := `
		SELECT ` + badgeColumns + `,
			ub.earned_at
		FROM badges b
		LEFT JOIN user_badges ub ON ub.badge_id = b.id AND ub.user_id = $1
		ORDER BY b.category, b.criteria_value, b.id`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges with status: %w", err)
	}
	defer rows.Close()

	var badges []*models.BadgeWithStatus
	for rows.Next() {
		var bs models.BadgeWithStatus
		err := rows.Scan(
			&bs.ID, &bs.Name, &bs.Description, &bs.Icon, &bs.Category,
			&bs.CriteriaType, &bs.CriteriaValue, &bs.CriteriaTarget, &bs.CreatedAt,
			&bs.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge with status: %w", err)
		}
		bs.Earned = bs.EarnedAt != nil
		badges = append(badges, &bs)
	}

	return badges, rows.Err()
}

// Award inserts a user badge idempotently. The unique pair constraint
// plus ON CONFLICT DO NOTHING makes concurrent evaluations safe.
func (r *badgeRepository) Award(ctx context.Context, userID, badgeID int64) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING`

	result, err := r.ExecContext(ctx, query, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read award result: %w", err)
	}

	if rows > 0 {
		r.GetLogger().Info("badge awarded",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badgeID),
		)
	}

	return rows > 0, nil
}
