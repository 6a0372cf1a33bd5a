package repositories

import (
	"context"
	"fmt"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type leaderboardRepository struct {
	*BaseRepository
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *database.Manager, logger *zap.Logger) LeaderboardRepository {
	return &leaderboardRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// periodFilter maps a leaderboard period to a SQL window predicate on
// activity_date. The all-time period has no predicate.
func periodFilter(period string) string {
	switch period {
	case models.LeaderboardPeriodWeekly:
		return `AND a.activity_date >= date_trunc('week', NOW())`
	case models.LeaderboardPeriodMonthly:
		return `AND a.activity_date >= date_trunc('month', NOW())`
	default:
		return ``
	}
}

// GetGlobal returns distance-ranked users for a period. Ranks are
// assigned over the full result set so a page starts at its absolute
// rank.
func (r *leaderboardRepository) GetGlobal(ctx context.Context, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error) {
	params.Normalize()

	countQuery := `
		SELECT COUNT(DISTINCT a.user_id)
		FROM activities a
		WHERE TRUE ` + periodFilter(period)

	total, err := r.GetTotalCount(ctx, countQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard users: %w", err)
	}

	query := `
		SELECT rank, user_id, username, display_name, avatar_url, total_distance, activity_count
		FROM (
			SELECT
				ROW_NUMBER() OVER (ORDER BY SUM(a.distance_km) DESC, MIN(a.created_at)) AS rank,
				u.id AS user_id,
				u.username,
				u.display_name,
				u.avatar_url,
				SUM(a.distance_km) AS total_distance,
				COUNT(a.id) AS activity_count
			FROM activities a
			JOIN users u ON u.id = a.user_id AND u.is_active = true
			WHERE TRUE ` + periodFilter(period) + `
			GROUP BY u.id
		) ranked
		ORDER BY rank
		LIMIT $1 OFFSET $2`

	return r.queryEntries(ctx, query, total, params.Limit, params.Offset)
}

// GetCommunity returns the leaderboard restricted to community members
func (r *leaderboardRepository) GetCommunity(ctx context.Context, communityID int64, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error) {
	params.Normalize()

	countQuery := `
		SELECT COUNT(DISTINCT a.user_id)
		FROM activities a
		JOIN community_members cm ON cm.user_id = a.user_id AND cm.community_id = $1
		WHERE TRUE ` + periodFilter(period)

	total, err := r.GetTotalCount(ctx, countQuery, communityID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count community leaderboard users: %w", err)
	}

	query := `
		SELECT rank, user_id, username, display_name, avatar_url, total_distance, activity_count
		FROM (
			SELECT
				ROW_NUMBER() OVER (ORDER BY SUM(a.distance_km) DESC, MIN(a.created_at)) AS rank,
				u.id AS user_id,
				u.username,
				u.display_name,
				u.avatar_url,
				SUM(a.distance_km) AS total_distance,
				COUNT(a.id) AS activity_count
			FROM activities a
			JOIN users u ON u.id = a.user_id AND u.is_active = true
			JOIN community_members cm ON cm.user_id = a.user_id AND cm.community_id = $1
			WHERE TRUE ` + periodFilter(period) + `
			GROUP BY u.id
		) ranked
		ORDER BY rank
		LIMIT $2 OFFSET $3`

	return r.queryEntries(ctx, query, total, communityID, params.Limit, params.Offset)
}

func (r *leaderboardRepository) queryEntries(ctx context.Context, query string, total int64, args ...interface{}) ([]*models.LeaderboardEntry, int64, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leaderboard: %w", err)
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
			return nil, 0, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, total, rows.Err()
}
