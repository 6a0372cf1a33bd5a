package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"thetrek/internal/database"
)

// Collection bundles all repositories behind one constructor so the
// service layer wires against interfaces instead of concrete types.
type Collection struct {
	User         UserRepository
	Activity     ActivityRepository
	Badge        BadgeRepository
	Leaderboard  LeaderboardRepository
	Community    CommunityRepository
	Championship ChampionshipRepository
	Token        TokenRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.User = NewUserRepository(db, logger)
	collection.Activity = NewActivityRepository(db, logger)
	collection.Badge = NewBadgeRepository(db, logger)
	collection.Leaderboard = NewLeaderboardRepository(db, logger)
	collection.Community = NewCommunityRepository(db, logger)
	collection.Championship = NewChampionshipRepository(db, logger)
	collection.Token = NewTokenRepository(db, logger)

	logger.Info("repositories initialized")
	return collection, nil
}

// HealthCheck verifies database connectivity for the repository layer.
func (c *Collection) HealthCheck(ctx context.Context) error {
	return c.db.Health(ctx)
}
