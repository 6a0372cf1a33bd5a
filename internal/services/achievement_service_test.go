package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thetrek/internal/models"
)

// mockBadgeRepo is a hand-rolled badge repository for testing
type mockBadgeRepo struct {
	unearned    []*models.Badge
	withStatus  []*models.BadgeWithStatus
	awarded     []int64
	awardResult bool
	awardErr    error
}

func (m *mockBadgeRepo) GetAll(ctx context.Context) ([]*models.Badge, error) {
	badges := make([]*models.Badge, 0, len(m.withStatus))
	for _, b := range m.withStatus {
		badge := b.Badge
		badges = append(badges, &badge)
	}
	return badges, nil
}

func (m *mockBadgeRepo) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	return nil, nil
}

func (m *mockBadgeRepo) GetUnearnedByUser(ctx context.Context, userID int64) ([]*models.Badge, error) {
	return m.unearned, nil
}

func (m *mockBadgeRepo) GetEarnedByUser(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	return nil, nil
}

func (m *mockBadgeRepo) GetAllWithStatus(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error) {
	return m.withStatus, nil
}

func (m *mockBadgeRepo) Award(ctx context.Context, userID, badgeID int64) (bool, error) {
	if m.awardErr != nil {
		return false, m.awardErr
	}
	m.awarded = append(m.awarded, badgeID)
	return m.awardResult, nil
}

// mockActivityRepo serves canned stats and dates
type mockActivityRepo struct {
	stats      *models.ActivityStats
	dates      []time.Time
	activities map[int64]*models.Activity
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	return nil
}

func (m *mockActivityRepo) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	return m.activities[id], nil
}

func (m *mockActivityRepo) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.Activity, int64, error) {
	return nil, 0, nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, id, userID int64) error {
	return nil
}

func (m *mockActivityRepo) GetStats(ctx context.Context, userID int64) (*models.ActivityStats, error) {
	return m.stats, nil
}

func (m *mockActivityRepo) GetDistinctActivityDates(ctx context.Context, userID int64) ([]time.Time, error) {
	return m.dates, nil
}

func (m *mockActivityRepo) ExistsByExternalID(ctx context.Context, userID int64, externalID string) (bool, error) {
	return false, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{
			name:  "no dates",
			dates: nil,
			want:  0,
		},
		{
			name:  "single day",
			dates: []time.Time{day(2026, 3, 10)},
			want:  1,
		},
		{
			name: "three consecutive days",
			dates: []time.Time{
				day(2026, 3, 12), day(2026, 3, 11), day(2026, 3, 10),
			},
			want: 3,
		},
		{
			name: "gap breaks the run",
			dates: []time.Time{
				day(2026, 3, 12), day(2026, 3, 11), day(2026, 3, 10), day(2026, 3, 8),
			},
			want: 3,
		},
		{
			name: "gap right after the most recent day",
			dates: []time.Time{
				day(2026, 3, 12), day(2026, 3, 10), day(2026, 3, 9), day(2026, 3, 8),
			},
			want: 1,
		},
		{
			name: "run across a month boundary",
			dates: []time.Time{
				day(2026, 4, 1), day(2026, 3, 31), day(2026, 3, 30),
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.dates))
		})
	}
}

func TestEvaluateCriterion(t *testing.T) {
	stats := &models.ActivityStats{
		ActivityCount:        10,
		TotalDistanceKM:      100,
		ActivityTypesCount:   3,
		FastestPaceMinPerKM:  5.5,
		LongestDistanceKM:    21.1,
		LongestDurationMin:   120,
		WeekendActivityCount: 4,
		CurrentStreakDays:    7,
	}

	badge := func(ct models.CriteriaType, value float64, target string) *models.Badge {
		return &models.Badge{CriteriaType: ct, CriteriaValue: value, CriteriaTarget: target}
	}

	tests := []struct {
		name    string
		badge   *models.Badge
		stats   *models.ActivityStats
		trigger *models.Activity
		want    bool
	}{
		{"activity count met exactly", badge(models.CriteriaActivityCount, 10, ""), stats, nil, true},
		{"activity count not met", badge(models.CriteriaActivityCount, 11, ""), stats, nil, false},
		{"total distance inclusive", badge(models.CriteriaTotalDistance, 100, ""), stats, nil, true},
		{"streak met", badge(models.CriteriaStreak, 7, ""), stats, nil, true},
		{"streak not met", badge(models.CriteriaStreak, 8, ""), stats, nil, false},
		{"pace at threshold", badge(models.CriteriaFastestPace, 5.5, ""), stats, nil, true},
		{"pace faster than threshold", badge(models.CriteriaFastestPace, 6, ""), stats, nil, true},
		{"pace too slow", badge(models.CriteriaFastestPace, 5, ""), stats, nil, false},
		{
			// The sentinel pace of a fresh account must never satisfy a
			// pace badge, even with an absurdly high threshold.
			"pace with no activities",
			badge(models.CriteriaFastestPace, 1000, ""),
			&models.ActivityStats{ActivityCount: 0, FastestPaceMinPerKM: models.UndefinedPace},
			nil,
			false,
		},
		{"single distance met", badge(models.CriteriaSingleDistance, 21.1, ""), stats, nil, true},
		{"single duration met", badge(models.CriteriaSingleDuration, 120, ""), stats, nil, true},
		{"activity types met", badge(models.CriteriaActivityTypes, 3, ""), stats, nil, true},
		{"weekend count not met", badge(models.CriteriaWeekendActivities, 5, ""), stats, nil, false},
		{
			"morning activity at 02:00",
			badge(models.CriteriaTimeOfDay, 1, "morning"),
			stats,
			&models.Activity{ActivityDate: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)},
			true,
		},
		{
			"morning boundary at 06:00 misses",
			badge(models.CriteriaTimeOfDay, 1, "morning"),
			stats,
			&models.Activity{ActivityDate: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)},
			false,
		},
		{
			"night activity at 23:00",
			badge(models.CriteriaTimeOfDay, 1, "night"),
			stats,
			&models.Activity{ActivityDate: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)},
			true,
		},
		{
			"night boundary at 22:00 counts",
			badge(models.CriteriaTimeOfDay, 1, "night"),
			stats,
			&models.Activity{ActivityDate: time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)},
			true,
		},
		{
			"time of day without a trigger",
			badge(models.CriteriaTimeOfDay, 1, "morning"),
			stats,
			nil,
			false,
		},
		{"unknown criteria type", badge("unknown", 1, ""), stats, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCriterion(tt.badge, tt.stats, tt.trigger))
		})
	}
}

func TestCheckAndAwardBadges(t *testing.T) {
	logger := zap.NewNop()

	t.Run("awards all satisfied badges", func(t *testing.T) {
		badgeRepo := &mockBadgeRepo{
			unearned: []*models.Badge{
				{ID: 1, Name: "First Steps", CriteriaType: models.CriteriaActivityCount, CriteriaValue: 1},
				{ID: 2, Name: "Century Club", CriteriaType: models.CriteriaActivityCount, CriteriaValue: 100},
				{ID: 3, Name: "Ten K", CriteriaType: models.CriteriaTotalDistance, CriteriaValue: 10},
			},
			awardResult: true,
		}
		activityRepo := &mockActivityRepo{
			stats: &models.ActivityStats{
				ActivityCount:       5,
				TotalDistanceKM:     12,
				FastestPaceMinPerKM: 6,
			},
			dates: []time.Time{day(2026, 3, 10)},
		}

		svc := NewAchievementService(badgeRepo, activityRepo, nil, logger)
		awarded, err := svc.CheckAndAwardBadges(context.Background(), 1, 0)
		require.NoError(t, err)
		require.Len(t, awarded, 2)
		assert.Equal(t, int64(1), awarded[0].ID)
		assert.Equal(t, int64(3), awarded[1].ID)
		assert.Equal(t, []int64{1, 3}, badgeRepo.awarded)
	})

	t.Run("concurrent award loss is not reported", func(t *testing.T) {
		badgeRepo := &mockBadgeRepo{
			unearned: []*models.Badge{
				{ID: 1, CriteriaType: models.CriteriaActivityCount, CriteriaValue: 1},
			},
			awardResult: false, // another evaluation got there first
		}
		activityRepo := &mockActivityRepo{
			stats: &models.ActivityStats{ActivityCount: 1, FastestPaceMinPerKM: 6},
			dates: []time.Time{day(2026, 3, 10)},
		}

		svc := NewAchievementService(badgeRepo, activityRepo, nil, logger)
		awarded, err := svc.CheckAndAwardBadges(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.Empty(t, awarded)
	})

	t.Run("no candidates short-circuits", func(t *testing.T) {
		badgeRepo := &mockBadgeRepo{}
		activityRepo := &mockActivityRepo{}

		svc := NewAchievementService(badgeRepo, activityRepo, nil, logger)
		awarded, err := svc.CheckAndAwardBadges(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.Empty(t, awarded)
	})

	t.Run("recheck without a trigger still awards single-activity badges", func(t *testing.T) {
		badgeRepo := &mockBadgeRepo{
			unearned: []*models.Badge{
				{ID: 4, Name: "Half Marathon", CriteriaType: models.CriteriaSingleDistance, CriteriaValue: 21.1},
				{ID: 5, Name: "Endurance", CriteriaType: models.CriteriaSingleDuration, CriteriaValue: 120},
			},
			awardResult: true,
		}
		activityRepo := &mockActivityRepo{
			stats: &models.ActivityStats{
				ActivityCount:       3,
				FastestPaceMinPerKM: 6,
				LongestDistanceKM:   22.5,
				LongestDurationMin:  150,
			},
			dates: []time.Time{day(2026, 3, 10)},
		}

		svc := NewAchievementService(badgeRepo, activityRepo, nil, logger)
		awarded, err := svc.CheckAndAwardBadges(context.Background(), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 5}, badgeRepo.awarded)
		require.Len(t, awarded, 2)
	})

	t.Run("time of day uses the triggering activity", func(t *testing.T) {
		badgeRepo := &mockBadgeRepo{
			unearned: []*models.Badge{
				{ID: 9, Name: "Early Bird", CriteriaType: models.CriteriaTimeOfDay, CriteriaValue: 1, CriteriaTarget: "morning"},
			},
			awardResult: true,
		}
		activityRepo := &mockActivityRepo{
			stats: &models.ActivityStats{ActivityCount: 1, FastestPaceMinPerKM: 6},
			dates: []time.Time{day(2026, 3, 10)},
			activities: map[int64]*models.Activity{
				42: {ID: 42, ActivityDate: time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC)},
			},
		}

		svc := NewAchievementService(badgeRepo, activityRepo, nil, logger)
		awarded, err := svc.CheckAndAwardBadges(context.Background(), 1, 42)
		require.NoError(t, err)
		require.Len(t, awarded, 1)
		assert.Equal(t, int64(9), awarded[0].ID)
	})
}

func TestGetCatalogCategoryFilter(t *testing.T) {
	logger := zap.NewNop()
	badgeRepo := &mockBadgeRepo{
		withStatus: []*models.BadgeWithStatus{
			{Badge: models.Badge{ID: 1, Name: "First Steps", Category: models.BadgeCategoryMilestones}},
			{Badge: models.Badge{ID: 2, Name: "Marathon", Category: models.BadgeCategoryPerformance}},
			{Badge: models.Badge{ID: 3, Name: "Early Bird", Category: models.BadgeCategorySpecial}},
		},
	}
	svc := NewAchievementService(badgeRepo, &mockActivityRepo{}, nil, logger)

	t.Run("empty category returns the whole catalog", func(t *testing.T) {
		badges, err := svc.GetCatalog(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, badges, 3)
	})

	t.Run("known category narrows the catalog", func(t *testing.T) {
		badges, err := svc.GetCatalog(context.Background(), models.BadgeCategorySpecial)
		require.NoError(t, err)
		require.Len(t, badges, 1)
		assert.Equal(t, "Early Bird", badges[0].Name)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		_, err := svc.GetCatalog(context.Background(), "consistency")
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestBuildProgress(t *testing.T) {
	stats := &models.ActivityStats{
		ActivityCount:       5,
		TotalDistanceKM:     250,
		FastestPaceMinPerKM: 9,
	}

	t.Run("partial progress", func(t *testing.T) {
		b := &models.BadgeWithStatus{
			Badge: models.Badge{CriteriaType: models.CriteriaActivityCount, CriteriaValue: 10},
		}
		p := buildProgress(b, stats)
		assert.Equal(t, 5.0, p.Current)
		assert.Equal(t, 10.0, p.Target)
		assert.Equal(t, 50.0, p.Percent)
	})

	t.Run("progress clamps at 100", func(t *testing.T) {
		b := &models.BadgeWithStatus{
			Badge: models.Badge{CriteriaType: models.CriteriaTotalDistance, CriteriaValue: 100},
		}
		p := buildProgress(b, stats)
		assert.Equal(t, 100.0, p.Percent)
	})

	t.Run("earned badge reports 100", func(t *testing.T) {
		b := &models.BadgeWithStatus{
			Badge:  models.Badge{CriteriaType: models.CriteriaActivityCount, CriteriaValue: 100},
			Earned: true,
		}
		p := buildProgress(b, stats)
		assert.Equal(t, 100.0, p.Percent)
	})

	t.Run("pace ratio is inverted", func(t *testing.T) {
		b := &models.BadgeWithStatus{
			Badge: models.Badge{CriteriaType: models.CriteriaFastestPace, CriteriaValue: 4.5},
		}
		p := buildProgress(b, stats)
		assert.Equal(t, 9.0, p.Current)
		assert.InDelta(t, 50.0, p.Percent, 0.001)
	})

	t.Run("time of day is binary", func(t *testing.T) {
		b := &models.BadgeWithStatus{
			Badge: models.Badge{CriteriaType: models.CriteriaTimeOfDay, CriteriaValue: 1},
		}
		p := buildProgress(b, stats)
		assert.Equal(t, 1.0, p.Target)
		assert.Equal(t, 0.0, p.Percent)
	})
}
