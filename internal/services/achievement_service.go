package services

import (
	"context"
	"time"

	"thetrek/internal/events"
	"thetrek/internal/models"
	"thetrek/internal/repositories"

	"go.uber.org/zap"
)

// AchievementService evaluates badge criteria and awards badges
type AchievementService interface {
	// CheckAndAwardBadges evaluates every badge the user has not yet
	// earned and awards the ones whose criteria are now met.
	// activityID identifies the triggering activity; pass 0 when the
	// evaluation is not driven by a specific activity.
	CheckAndAwardBadges(ctx context.Context, userID, activityID int64) ([]*models.Badge, error)

	// GetBadgeProgress returns the full catalog with the user's
	// progress toward each badge.
	GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error)

	// GetCatalog returns the badge catalog, optionally filtered to one
	// category. An empty category means the whole catalog.
	GetCatalog(ctx context.Context, category string) ([]*models.Badge, error)
	GetEarnedBadges(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error)
}

type achievementService struct {
	badgeRepo    repositories.BadgeRepository
	activityRepo repositories.ActivityRepository
	eventBus     events.EventBus
	logger       *zap.Logger
}

// NewAchievementService creates the achievement service
func NewAchievementService(
	badgeRepo repositories.BadgeRepository,
	activityRepo repositories.ActivityRepository,
	eventBus events.EventBus,
	logger *zap.Logger,
) AchievementService {
	return &achievementService{
		badgeRepo:    badgeRepo,
		activityRepo: activityRepo,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// CheckAndAwardBadges runs one evaluation pass for a user
func (s *achievementService) CheckAndAwardBadges(ctx context.Context, userID, activityID int64) ([]*models.Badge, error) {
	candidates, err := s.badgeRepo.GetUnearnedByUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load badge candidates")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The triggering activity is only needed for time-of-day criteria
	var trigger *models.Activity
	if activityID > 0 {
		trigger, err = s.activityRepo.GetByID(ctx, activityID)
		if err != nil {
			return nil, NewInternalError("failed to load triggering activity")
		}
	}

	var awarded []*models.Badge
	for _, badge := range candidates {
		if !EvaluateCriterion(badge, stats, trigger) {
			continue
		}

		inserted, err := s.badgeRepo.Award(ctx, userID, badge.ID)
		if err != nil {
			s.logger.Error("failed to award badge",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
			continue
		}
		if !inserted {
			// Lost a race with a concurrent evaluation; the badge is
			// held either way.
			continue
		}

		awarded = append(awarded, badge)

		if s.eventBus != nil {
			event := events.NewBadgeAwardedEvent(badge.ID, userID, badge.Name)
			if err := s.eventBus.PublishAsync(ctx, event); err != nil {
				s.logger.Warn("failed to publish badge awarded event",
					zap.Int64("badge_id", badge.ID),
					zap.Error(err),
				)
			}
		}
	}

	if len(awarded) > 0 {
		s.logger.Info("badges awarded",
			zap.Int64("user_id", userID),
			zap.Int("count", len(awarded)),
		)
	}

	return awarded, nil
}

// GetBadgeProgress computes progress for the whole catalog
func (s *achievementService) GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	badges, err := s.badgeRepo.GetAllWithStatus(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load badge catalog")
	}

	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := make([]*models.BadgeProgress, 0, len(badges))
	for _, b := range badges {
		progress = append(progress, buildProgress(b, stats))
	}

	return progress, nil
}

// GetCatalog returns the static badge catalog
func (s *achievementService) GetCatalog(ctx context.Context, category string) ([]*models.Badge, error) {
	if category != "" && !models.ValidBadgeCategory(category) {
		return nil, NewValidationError("unknown badge category: "+category, nil)
	}

	badges, err := s.badgeRepo.GetAll(ctx)
	if err != nil {
		return nil, NewInternalError("failed to load badge catalog")
	}
	if category == "" {
		return badges, nil
	}

	filtered := make([]*models.Badge, 0, len(badges))
	for _, b := range badges {
		if b.Category == category {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// GetEarnedBadges returns badges the user holds
func (s *achievementService) GetEarnedBadges(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error) {
	all, err := s.badgeRepo.GetAllWithStatus(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load earned badges")
	}

	earned := make([]*models.BadgeWithStatus, 0, len(all))
	for _, b := range all {
		if b.Earned {
			earned = append(earned, b)
		}
	}

	return earned, nil
}

// loadStats builds the aggregate statistics block, including the streak
func (s *achievementService) loadStats(ctx context.Context, userID int64) (*models.ActivityStats, error) {
	stats, err := s.activityRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to compute activity stats")
	}

	if stats.ActivityCount > 0 {
		dates, err := s.activityRepo.GetDistinctActivityDates(ctx, userID)
		if err != nil {
			return nil, NewInternalError("failed to load activity dates")
		}
		stats.CurrentStreakDays = ComputeStreak(dates)
	}

	return stats, nil
}

// ComputeStreak returns the length of the consecutive-day run that
// contains the most recent activity date. Dates must be distinct
// calendar days ordered most recent first. A single gap ends the run.
func ComputeStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	streak := 1
	prev := truncateDay(dates[0])
	for _, d := range dates[1:] {
		day := truncateDay(d)
		if prev.Sub(day) == 24*time.Hour {
			streak++
			prev = day
			continue
		}
		break
	}

	return streak
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Time-of-day boundaries. Morning activities start before 06:00,
// night activities at or after 22:00, local to the recorded timestamp.
const (
	morningEndHour   = 6
	nightStartHour   = 22
	timeOfDayMorning = "morning"
	timeOfDayNight   = "night"
)

// EvaluateCriterion reports whether a badge's criterion is satisfied.
// All numeric thresholds are inclusive. Time-of-day criteria evaluate
// the triggering activity only and are never satisfied without one.
func EvaluateCriterion(badge *models.Badge, stats *models.ActivityStats, trigger *models.Activity) bool {
	switch badge.CriteriaType {
	case models.CriteriaActivityCount:
		return float64(stats.ActivityCount) >= badge.CriteriaValue
	case models.CriteriaTotalDistance:
		return stats.TotalDistanceKM >= badge.CriteriaValue
	case models.CriteriaStreak:
		return float64(stats.CurrentStreakDays) >= badge.CriteriaValue
	case models.CriteriaFastestPace:
		return stats.ActivityCount > 0 && stats.FastestPaceMinPerKM <= badge.CriteriaValue
	case models.CriteriaSingleDistance:
		return stats.LongestDistanceKM >= badge.CriteriaValue
	case models.CriteriaSingleDuration:
		return float64(stats.LongestDurationMin) >= badge.CriteriaValue
	case models.CriteriaActivityTypes:
		return float64(stats.ActivityTypesCount) >= badge.CriteriaValue
	case models.CriteriaWeekendActivities:
		return float64(stats.WeekendActivityCount) >= badge.CriteriaValue
	case models.CriteriaTimeOfDay:
		if trigger == nil {
			return false
		}
		hour := trigger.ActivityDate.Hour()
		switch badge.CriteriaTarget {
		case timeOfDayMorning:
			return hour < morningEndHour
		case timeOfDayNight:
			return hour >= nightStartHour
		}
		return false
	default:
		return false
	}
}

// buildProgress maps a badge and the user's stats to a progress view.
// Earned badges always report 100 percent.
func buildProgress(b *models.BadgeWithStatus, stats *models.ActivityStats) *models.BadgeProgress {
	p := &models.BadgeProgress{
		Badge:  b.Badge,
		Earned: b.Earned,
		Target: b.CriteriaValue,
	}

	switch b.CriteriaType {
	case models.CriteriaActivityCount:
		p.Current = float64(stats.ActivityCount)
	case models.CriteriaTotalDistance:
		p.Current = stats.TotalDistanceKM
	case models.CriteriaStreak:
		p.Current = float64(stats.CurrentStreakDays)
	case models.CriteriaFastestPace:
		// Pace improves downward; report the best pace so far and
		// invert the ratio for the progress bar.
		p.Current = stats.FastestPaceMinPerKM
		if b.Earned {
			p.Percent = 100
		} else if stats.ActivityCount > 0 && stats.FastestPaceMinPerKM > 0 {
			p.Percent = clampPercent(b.CriteriaValue / stats.FastestPaceMinPerKM * 100)
		}
		return p
	case models.CriteriaSingleDistance:
		p.Current = stats.LongestDistanceKM
	case models.CriteriaSingleDuration:
		p.Current = float64(stats.LongestDurationMin)
	case models.CriteriaActivityTypes:
		p.Current = float64(stats.ActivityTypesCount)
	case models.CriteriaWeekendActivities:
		p.Current = float64(stats.WeekendActivityCount)
	case models.CriteriaTimeOfDay:
		// Binary criterion; earned or not.
		p.Target = 1
		if b.Earned {
			p.Current = 1
			p.Percent = 100
		}
		return p
	}

	if b.Earned {
		p.Percent = 100
	} else if p.Target > 0 {
		p.Percent = clampPercent(p.Current / p.Target * 100)
	}

	return p
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
