package models

import "time"

// CriteriaType identifies the statistic a badge criterion is evaluated
// against.
type CriteriaType string

const (
	CriteriaActivityCount     CriteriaType = "activity_count"
	CriteriaTotalDistance     CriteriaType = "total_distance"
	CriteriaStreak            CriteriaType = "streak"
	CriteriaFastestPace       CriteriaType = "fastest_pace"
	CriteriaSingleDistance    CriteriaType = "single_distance"
	CriteriaSingleDuration    CriteriaType = "single_duration"
	CriteriaActivityTypes     CriteriaType = "activity_types"
	CriteriaWeekendActivities CriteriaType = "weekend_activities"
	CriteriaTimeOfDay         CriteriaType = "time_of_day"
)

// Badge categories.
const (
	BadgeCategoryMilestones  = "milestones"
	BadgeCategoryDistance    = "distance"
	BadgeCategoryStreaks     = "streaks"
	BadgeCategoryPerformance = "performance"
	BadgeCategoryVariety     = "variety"
	BadgeCategorySpecial     = "special"
)

// BadgeCategories lists every catalog category, in display order.
var BadgeCategories = []string{
	BadgeCategoryMilestones,
	BadgeCategoryDistance,
	BadgeCategoryStreaks,
	BadgeCategoryPerformance,
	BadgeCategoryVariety,
	BadgeCategorySpecial,
}

// ValidBadgeCategory reports whether category names a known catalog
// category.
func ValidBadgeCategory(category string) bool {
	for _, c := range BadgeCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Badge is a static catalog entry. Numeric criteria carry the threshold
// in CriteriaValue; time_of_day criteria carry "morning" or "night" in
// CriteriaTarget instead.
type Badge struct {
	ID             int64        `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Description    string       `json:"description" db:"description"`
	Icon           string       `json:"icon" db:"icon"`
	Category       string       `json:"category" db:"category"`
	CriteriaType   CriteriaType `json:"criteria_type" db:"criteria_type"`
	CriteriaValue  float64      `json:"criteria_value" db:"criteria_value"`
	CriteriaTarget string       `json:"criteria_target,omitempty" db:"criteria_target"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// UserBadge is an award record. Once granted it is never revoked or
// duplicated; (user_id, badge_id) is unique.
type UserBadge struct {
	UserID   int64     `json:"user_id" db:"user_id"`
	BadgeID  int64     `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}

// BadgeWithStatus decorates a catalog badge with a user's award state
type BadgeWithStatus struct {
	Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// BadgeProgress is the progress-bar view of one badge for one user
type BadgeProgress struct {
	Badge   Badge   `json:"badge"`
	Earned  bool    `json:"earned"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Percent float64 `json:"percent"` // 0-100, clamped
}
