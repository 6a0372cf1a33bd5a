package repositories

import (
	"context"
	"time"

	"thetrek/internal/models"
)

// UserRepository manages user persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, userID int64, avatarURL, publicID string) error
	GetProfileCounts(ctx context.Context, userID int64) (badges int, activities int, err error)
}

// ActivityRepository manages activity persistence and the aggregate
// queries the achievement engine evaluates against
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id int64) (*models.Activity, error)
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.Activity, int64, error)
	Delete(ctx context.Context, id, userID int64) error

	// GetStats computes the aggregate statistics block for a user in a
	// single query. Users with no activities get a zero-valued block.
	GetStats(ctx context.Context, userID int64) (*models.ActivityStats, error)

	// GetDistinctActivityDates returns the user's distinct activity
	// dates, most recent first, for streak computation.
	GetDistinctActivityDates(ctx context.Context, userID int64) ([]time.Time, error)

	// ExistsByExternalID reports whether an imported activity with the
	// given external id already exists for the user.
	ExistsByExternalID(ctx context.Context, userID int64, externalID string) (bool, error)
}

// BadgeRepository manages the badge catalog and user awards
type BadgeRepository interface {
	GetAll(ctx context.Context) ([]*models.Badge, error)
	GetByID(ctx context.Context, id int64) (*models.Badge, error)

	// GetUnearnedByUser returns catalog badges the user has not yet
	// earned. These are the only candidates the engine evaluates.
	GetUnearnedByUser(ctx context.Context, userID int64) ([]*models.Badge, error)

	GetEarnedByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	GetAllWithStatus(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error)

	// Award inserts a user badge idempotently. Returns true when the
	// row was inserted, false when the user already held the badge.
	Award(ctx context.Context, userID, badgeID int64) (bool, error)
}

// LeaderboardRepository serves ranked aggregates
type LeaderboardRepository interface {
	GetGlobal(ctx context.Context, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error)
	GetCommunity(ctx context.Context, communityID int64, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error)
}

// CommunityRepository manages communities and membership
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id int64) (*models.Community, error)
	List(ctx context.Context, params models.PaginationParams) ([]*models.Community, int64, error)
	Join(ctx context.Context, communityID, userID int64) error
	Leave(ctx context.Context, communityID, userID int64) error
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
	MemberCount(ctx context.Context, communityID int64) (int, error)
}

// ChampionshipRepository manages seasonal competitions
type ChampionshipRepository interface {
	Create(ctx context.Context, championship *models.Championship) error
	GetByID(ctx context.Context, id int64) (*models.Championship, error)
	List(ctx context.Context, params models.PaginationParams) ([]*models.Championship, int64, error)
	GetStandings(ctx context.Context, championship *models.Championship, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error)
}

// TokenRepository manages refresh tokens and Google Fit credentials
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)

	UpsertGoogleFitToken(ctx context.Context, token *models.GoogleFitToken) error
	GetGoogleFitToken(ctx context.Context, userID int64) (*models.GoogleFitToken, error)
	UpdateGoogleFitSyncTime(ctx context.Context, userID int64, syncedAt time.Time) error
	DeleteGoogleFitToken(ctx context.Context, userID int64) error
}
