package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"thetrek/internal/database"
	"thetrek/internal/models"

	"go.uber.org/zap"
)

type communityRepository struct {
	*BaseRepository
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *database.Manager, logger *zap.Logger) CommunityRepository {
	return &communityRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a community and enrolls the creator as its first
// member in the same transaction
func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO communities (name, description, creator_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
			community.Name, community.Description, community.CreatorID,
		).Scan(&community.ID, &community.CreatedAt)
		if err != nil {
			if r.IsUniqueViolation(err) {
				return fmt.Errorf("failed to create community: %w", ErrDuplicate)
			}
			return fmt.Errorf("failed to create community: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO community_members (community_id, user_id)
			VALUES ($1, $2)`,
			community.ID, community.CreatorID,
		)
		if err != nil {
			return fmt.Errorf("failed to enroll creator: %w", err)
		}

		community.MemberCount = 1
		community.IsMember = true
		return nil
	})
}

// GetByID retrieves a community with its member count
func (r *communityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	query := `
		SELECT c.id, c.name, c.description, c.creator_id, c.created_at,
			(SELECT COUNT(*) FROM community_members cm WHERE cm.community_id = c.id)
		FROM communities c
		WHERE c.id = $1`

	var c models.Community
	err := r.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.CreatorID, &c.CreatedAt, &c.MemberCount,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get community by ID: %w", err)
	}

	return &c, nil
}

// List returns communities ordered by member count
func (r *communityRepository) List(ctx context.Context, params models.PaginationParams) ([]*models.Community, int64, error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx, `SELECT COUNT(*) FROM communities`)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count communities: %w", err)
	}

	query := `
		SELECT c.id, c.name, c.description, c.creator_id, c.created_at,
			COUNT(cm.user_id) AS member_count
		FROM communities c
		LEFT JOIN community_members cm ON cm.community_id = c.id
		GROUP BY c.id
		ORDER BY member_count DESC, c.id
		LIMIT $1 OFFSET $2`

	rows, err := r.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list communities: %w", err)
	}
	defer rows.Close()

	var communities []*models.Community
	for rows.Next() {
		var c models.Community
		err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatorID, &c.CreatedAt, &c.MemberCount)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan community: %w", err)
		}
		communities = append(communities, &c)
	}

	return communities, total, rows.Err()
}

// Join adds a member idempotently
func (r *communityRepository) Join(ctx context.Context, communityID, userID int64) error {
	query := `
		INSERT INTO community_members (community_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (community_id, user_id) DO NOTHING`

	if _, err := r.ExecContext(ctx, query, communityID, userID); err != nil {
		return fmt.Errorf("failed to join community: %w", err)
	}

	return nil
}

// Leave removes a member
func (r *communityRepository) Leave(ctx context.Context, communityID, userID int64) error {
	result, err := r.ExecContext(ctx, `
		DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`,
		communityID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to leave community: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d is not a member of community %d", userID, communityID)
	}

	return nil
}

// IsMember reports whether the user belongs to the community
func (r *communityRepository) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM community_members WHERE community_id = $1 AND user_id = $2)`

	var member bool
	if err := r.QueryRowContext(ctx, query, communityID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return member, nil
}

// MemberCount returns the community's member count
func (r *communityRepository) MemberCount(ctx context.Context, communityID int64) (int, error) {
	var count int
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM community_members WHERE community_id = $1`,
		communityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}
