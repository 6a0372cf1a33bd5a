package repositories

import (
	"context"
	"fmt"
	"time"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &activityRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new activity
func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (
			user_id, type, distance_km, duration_min, activity_date,
			calories_burned, photo_url, source, external_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING id, created_at`

	err := r.QueryRowContext(
		ctx, query,
		activity.UserID, activity.Type, activity.DistanceKM, activity.DurationMin,
		activity.ActivityDate, activity.CaloriesBurned, activity.PhotoURL,
		activity.Source, activity.ExternalID,
	).Scan(&activity.ID, &activity.CreatedAt)

	if err != nil {
		r.GetLogger().Error("failed to create activity",
			zap.Error(err),
			zap.Int64("user_id", activity.UserID),
			zap.String("type", activity.Type),
		)
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

const activityColumns = `
	id, user_id, type, distance_km, duration_min, activity_date,
	calories_burned, photo_url, source, external_id, created_at`

func scanActivity(scan func(dest ...interface{}) error) (*models.Activity, error) {
	var a models.Activity
	err := scan(
		&a.ID, &a.UserID, &a.Type, &a.DistanceKM, &a.DurationMin, &a.ActivityDate,
		&a.CaloriesBurned, &a.PhotoURL, &a.Source, &a.ExternalID, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an activity by ID
func (r *activityRepository) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	activity, err := scanActivity(r.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activity by ID: %w", err)
	}
	return activity, nil
}

// ListByUser returns the user's activities, newest first, with total count
func (r *activityRepository) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.Activity, int64, error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx, `SELECT COUNT(*) FROM activities WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	query := `SELECT ` + activityColumns + `
		FROM activities
		WHERE user_id = $1
		ORDER BY activity_date DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.QueryContext(ctx, query, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		activity, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate activities: %w", err)
	}

	return activities, total, nil
}

// Delete removes an activity owned by the user
func (r *activityRepository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.ExecContext(ctx, `DELETE FROM activities WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("activity %d not found for user %d", id, userID)
	}

	return nil
}

// GetStats computes the aggregate statistics block in a single query.
// The streak is filled in separately from GetDistinctActivityDates.
// Fastest pace falls back to the undefined sentinel when the user has
// no activities with positive distance.
func (r *activityRepository) GetStats(ctx context.Context, userID int64) (*models.ActivityStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(distance_km), 0),
			COUNT(DISTINCT type),
			COALESCE(MIN(duration_min::float8 / NULLIF(distance_km, 0)), $2),
			COALESCE(MAX(distance_km), 0),
			COALESCE(MAX(duration_min), 0),
			COUNT(*) FILTER (WHERE EXTRACT(ISODOW FROM activity_date) IN (6, 7))
		FROM activities
		WHERE user_id = $1`

	var stats models.ActivityStats
	err := r.QueryRowContext(ctx, query, userID, models.UndefinedPace).Scan(
		&stats.ActivityCount,
		&stats.TotalDistanceKM,
		&stats.ActivityTypesCount,
		&stats.FastestPaceMinPerKM,
		&stats.LongestDistanceKM,
		&stats.LongestDurationMin,
		&stats.WeekendActivityCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute activity stats: %w", err)
	}

	return &stats, nil
}

// GetDistinctActivityDates returns the user's distinct activity dates,
// most recent first
func (r *activityRepository) GetDistinctActivityDates(ctx context.Context, userID int64) ([]time.Time, error) {
	query := `
		SELECT DISTINCT activity_date::date
		FROM activities
		WHERE user_id = $1
		ORDER BY activity_date::date DESC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan activity date: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity dates: %w", err)
	}

	return dates, nil
}

// ExistsByExternalID reports whether an imported activity already exists
func (r *activityRepository) ExistsByExternalID(ctx context.Context, userID int64, externalID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM activities WHERE user_id = $1 AND external_id = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, userID, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check imported activity: %w", err)
	}

	return exists, nil
}
