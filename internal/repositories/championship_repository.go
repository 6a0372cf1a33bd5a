package repositories

import (
	"context"
	"fmt"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type championshipRepository struct {
	*BaseRepository
}

// NewChampionshipRepository creates a new championship repository
func NewChampionshipRepository(db *database.Manager, logger *zap.Logger) ChampionshipRepository {
	return &championshipRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a championship
func (r *championshipRepository) Create(ctx context.Context, championship *models.Championship) error {
	query := `
		INSERT INTO championships (name, metric, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.QueryRowContext(
		ctx, query,
		championship.Name, championship.Metric, championship.StartsAt, championship.EndsAt,
	).Scan(&championship.ID, &championship.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create championship: %w", err)
	}

	return nil
}

// GetByID retrieves a championship by ID
func (r *championshipRepository) GetByID(ctx context.Context, id int64) (*models.Championship, error) {
	query := `
		SELECT id, name, metric, starts_at, ends_at, created_at
		FROM championships
		WHERE id = $1`

	var c models.Championship
	err := r.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Metric, &c.StartsAt, &c.EndsAt, &c.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get championship by ID: %w", err)
	}

	return &c, nil
}

// List returns championships, most recently starting first
func (r *championshipRepository) List(ctx context.Context, params models.PaginationParams) ([]*models.Championship, int64, error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx, `SELECT COUNT(*) FROM championships`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count championships: %w", err)
	}

	query := `
		SELECT id, name, metric, starts_at, ends_at, created_at
		FROM championships
		ORDER BY starts_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list championships: %w", err)
	}
	defer rows.Close()

	var championships []*models.Championship
	for rows.Next() {
		var c models.Championship
		err := rows.Scan(&c.ID, &c.Name, &c.Metric, &c.StartsAt, &c.EndsAt, &c.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan championship: %w", err)
		}
		championships = append(championships, &c)
	}

	return championships, total, rows.Err()
}

// GetStandings ranks users over the championship's date window by its
// metric. The window is inclusive of the start and exclusive of the end.
func (r *championshipRepository) GetStandings(ctx context.Context, championship *models.Championship, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error) {
	params.Normalize()

	rankExpr := `SUM(a.distance_km) DESC`
	if championship.Metric == models.ChampionshipMetricActivities {
		rankExpr = `COUNT(a.id) DESC`
	}

	countQuery := `
		SELECT COUNT(DISTINCT a.user_id)
		FROM activities a
		WHERE a.activity_date >= $1 AND a.activity_date < $2`

	total, err := r.GetTotalCount(ctx, countQuery, championship.StartsAt, championship.EndsAt)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count championship standings: %w", err)
	}

	query := `
		SELECT rank, user_id, username, display_name, avatar_url, total_distance, activity_count
		FROM (
			SELECT
				ROW_NUMBER() OVER (ORDER BY ` + rankExpr + `, MIN(a.created_at)) AS rank,
				u.id AS user_id,
				u.username,
				u.display_name,
				u.avatar_url,
				SUM(a.distance_km) AS total_distance,
				COUNT(a.id) AS activity_count
			FROM activities a
			JOIN users u ON u.id = a.user_id AND u.is_active = true
			WHERE a.activity_date >= $1 AND a.activity_date < $2
			GROUP BY u.id
		) ranked
		ORDER BY rank
		LIMIT $3 OFFSET $4`

	rows, err := r.QueryContext(ctx, query, championship.StartsAt, championship.EndsAt, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query championship standings: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		err := rows.Scan(
			&e.Rank, &e.UserID, &e.Username, &e.DisplayName, &e.AvatarURL,
			&e.TotalDistance, &e.ActivityCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan standing: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, total, rows.Err()
}
