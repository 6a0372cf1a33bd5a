package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thetrek/internal/cache"
	"thetrek/internal/models"
)

// mockLeaderboardRepo serves canned entries and counts its calls so
// tests can tell a cache hit from a repository query
type mockLeaderboardRepo struct {
	entries     []*models.LeaderboardEntry
	total       int64
	globalCalls int
	lastPeriod  string
}

func (m *mockLeaderboardRepo) GetGlobal(ctx context.Context, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error) {
	m.globalCalls++
	m.lastPeriod = period
	return m.entries, m.total, nil
}

func (m *mockLeaderboardRepo) GetCommunity(ctx context.Context, communityID int64, period string, params models.PaginationParams) ([]*models.LeaderboardEntry, int64, error) {
	return m.entries, m.total, nil
}

type mockCommunityRepo struct {
	communities map[int64]*models.Community
	createErr   error
	nextID      int64
}

func (m *mockCommunityRepo) Create(ctx context.Context, community *models.Community) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	community.ID = m.nextID
	if m.communities == nil {
		m.communities = make(map[int64]*models.Community)
	}
	m.communities[community.ID] = community
	return nil
}

func (m *mockCommunityRepo) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	return m.communities[id], nil
}

func (m *mockCommunityRepo) List(ctx context.Context, params models.PaginationParams) ([]*models.Community, int64, error) {
	return nil, 0, nil
}

func (m *mockCommunityRepo) Join(ctx context.Context, communityID, userID int64) error {
	return nil
}

func (m *mockCommunityRepo) Leave(ctx context.Context, communityID, userID int64) error {
	return nil
}

func (m *mockCommunityRepo) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	return false, nil
}

func (m *mockCommunityRepo) MemberCount(ctx context.Context, communityID int64) (int, error) {
	return 0, nil
}

func newLeaderboardFixture(t *testing.T) (*mockLeaderboardRepo, LeaderboardService) {
	t.Helper()

	repo := &mockLeaderboardRepo{
		entries: []*models.LeaderboardEntry{
			{Rank: 1, UserID: 7, Username: "trailblazer", TotalDistance: 120.5, ActivityCount: 14},
			{Rank: 2, UserID: 3, Username: "strider", TotalDistance: 98.2, ActivityCount: 11},
		},
		total: 2,
	}
	communityRepo := &mockCommunityRepo{communities: map[int64]*models.Community{}}

	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	return repo, NewLeaderboardService(repo, communityRepo, c, zap.NewNop())
}

func TestGetGlobalLeaderboard(t *testing.T) {
	t.Run("unknown period is rejected", func(t *testing.T) {
		_, svc := newLeaderboardFixture(t)
		_, err := svc.GetGlobal(context.Background(), "daily", models.PaginationParams{})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("empty period defaults to all", func(t *testing.T) {
		repo, svc := newLeaderboardFixture(t)
		page, err := svc.GetGlobal(context.Background(), "", models.PaginationParams{})
		require.NoError(t, err)
		assert.Equal(t, models.LeaderboardPeriodAll, page.Period)
		assert.Equal(t, models.LeaderboardPeriodAll, repo.lastPeriod)
	})

	t.Run("page survives the cache round trip", func(t *testing.T) {
		repo, svc := newLeaderboardFixture(t)

		first, err := svc.GetGlobal(context.Background(), models.LeaderboardPeriodWeekly, models.PaginationParams{})
		require.NoError(t, err)
		require.Equal(t, 1, repo.globalCalls)

		second, err := svc.GetGlobal(context.Background(), models.LeaderboardPeriodWeekly, models.PaginationParams{})
		require.NoError(t, err)
		assert.Equal(t, 1, repo.globalCalls, "second read should be served from cache")

		assert.Equal(t, first.Total, second.Total)
		assert.Equal(t, first.Period, second.Period)
		require.Len(t, second.Entries, 2)
		assert.Equal(t, "trailblazer", second.Entries[0].Username)
		assert.Equal(t, 120.5, second.Entries[0].TotalDistance)
		assert.Equal(t, 2, second.Entries[1].Rank)
	})

	t.Run("periods and pages are cached independently", func(t *testing.T) {
		repo, svc := newLeaderboardFixture(t)

		_, err := svc.GetGlobal(context.Background(), models.LeaderboardPeriodWeekly, models.PaginationParams{})
		require.NoError(t, err)
		_, err = svc.GetGlobal(context.Background(), models.LeaderboardPeriodMonthly, models.PaginationParams{})
		require.NoError(t, err)
		_, err = svc.GetGlobal(context.Background(), models.LeaderboardPeriodWeekly, models.PaginationParams{Offset: 20})
		require.NoError(t, err)

		assert.Equal(t, 3, repo.globalCalls)
	})
}

func TestGetCommunityLeaderboard(t *testing.T) {
	t.Run("missing community is not found", func(t *testing.T) {
		_, svc := newLeaderboardFixture(t)
		_, err := svc.GetCommunity(context.Background(), 99, models.LeaderboardPeriodAll, models.PaginationParams{})
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("existing community serves its page", func(t *testing.T) {
		repo := &mockLeaderboardRepo{
			entries: []*models.LeaderboardEntry{
				{Rank: 1, UserID: 7, Username: "trailblazer", TotalDistance: 50},
			},
			total: 1,
		}
		communityRepo := &mockCommunityRepo{
			communities: map[int64]*models.Community{
				4: {ID: 4, Name: "Morning Crew"},
			},
		}
		svc := NewLeaderboardService(repo, communityRepo, nil, zap.NewNop())

		page, err := svc.GetCommunity(context.Background(), 4, "", models.PaginationParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		require.Len(t, page.Entries, 1)
	})
}
