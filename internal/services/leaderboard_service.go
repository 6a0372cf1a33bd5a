package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thetrek/internal/cache"
	"thetrek/internal/models"
	"thetrek/internal/repositories"

	"go.uber.org/zap"
)

// LeaderboardPage is one cached page of a leaderboard
type LeaderboardPage struct {
	Entries []*models.LeaderboardEntry `json:"entries"`
	Total   int64                      `json:"total"`
	Period  string                     `json:"period"`
}

// LeaderboardService serves ranked views with short-lived caching
type LeaderboardService interface {
	GetGlobal(ctx context.Context, period string, params models.PaginationParams) (*LeaderboardPage, error)
	GetCommunity(ctx context.Context, communityID int64, period string, params models.PaginationParams) (*LeaderboardPage, error)
}

type leaderboardService struct {
	leaderboardRepo repositories.LeaderboardRepository
	communityRepo   repositories.CommunityRepository
	cache           cache.Cache
	cacheTTL        time.Duration
	logger          *zap.Logger
}

// NewLeaderboardService creates the leaderboard service
func NewLeaderboardService(
	leaderboardRepo repositories.LeaderboardRepository,
	communityRepo repositories.CommunityRepository,
	c cache.Cache,
	logger *zap.Logger,
) LeaderboardService {
	return &leaderboardService{
		leaderboardRepo: leaderboardRepo,
		communityRepo:   communityRepo,
		cache:           c,
		cacheTTL:        time.Minute,
		logger:          logger,
	}
}

func validPeriod(period string) (string, error) {
	switch period {
	case "", models.LeaderboardPeriodAll:
		return models.LeaderboardPeriodAll, nil
	case models.LeaderboardPeriodWeekly, models.LeaderboardPeriodMonthly:
		return period, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown leaderboard period: %s", period), nil)
	}
}

// GetGlobal returns the distance-ranked global leaderboard
func (s *leaderboardService) GetGlobal(ctx context.Context, period string, params models.PaginationParams) (*LeaderboardPage, error) {
	period, err := validPeriod(period)
	if err != nil {
		return nil, err
	}
	params.Normalize()

	cacheKey := fmt.Sprintf("leaderboard:global:%s:%d:%d", period, params.Limit, params.Offset)
	if page := s.fromCache(ctx, cacheKey); page != nil {
		return page, nil
	}

	entries, total, err := s.leaderboardRepo.GetGlobal(ctx, period, params)
	if err != nil {
		return nil, NewInternalError("failed to load leaderboard")
	}

	page := &LeaderboardPage{Entries: entries, Total: total, Period: period}
	s.toCache(ctx, cacheKey, page)

	return page, nil
}

// GetCommunity returns the leaderboard restricted to a community
func (s *leaderboardService) GetCommunity(ctx context.Context, communityID int64, period string, params models.PaginationParams) (*LeaderboardPage, error) {
	period, err := validPeriod(period)
	if err != nil {
		return nil, err
	}
	params.Normalize()

	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, NewInternalError("failed to load community")
	}
	if community == nil {
		return nil, EntityNotFoundError("community", communityID)
	}

	cacheKey := fmt.Sprintf("leaderboard:community:%d:%s:%d:%d", communityID, period, params.Limit, params.Offset)
	if page := s.fromCache(ctx, cacheKey); page != nil {
		return page, nil
	}

	entries, total, err := s.leaderboardRepo.GetCommunity(ctx, communityID, period, params)
	if err != nil {
		return nil, NewInternalError("failed to load community leaderboard")
	}

	page := &LeaderboardPage{Entries: entries, Total: total, Period: period}
	s.toCache(ctx, cacheKey, page)

	return page, nil
}

// Pages are cached as JSON so the memory and redis providers behave
// the same. Anything undecodable counts as a miss.
func (s *leaderboardService) fromCache(ctx context.Context, key string) *LeaderboardPage {
	if s.cache == nil {
		return nil
	}

	value, found := s.cache.Get(ctx, key)
	if !found {
		return nil
	}

	// The memory provider returns the stored string, the redis
	// provider may hand back an already-decoded value.
	raw, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			raw = []byte(str)
		} else if data, err := json.Marshal(value); err == nil {
			raw = data
		} else {
			return nil
		}
	}

	var page LeaderboardPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil
	}

	return &page
}

func (s *leaderboardService) toCache(ctx context.Context, key string, page *LeaderboardPage) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache leaderboard page",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
