package models

import "time"

// Community is a user-created group trekkers can join
type Community struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=3,max=100"`
	Description *string   `json:"description,omitempty" db:"description" validate:"omitempty,max=1000"`
	CreatorID   int64     `json:"creator_id" db:"creator_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Computed fields
	MemberCount int  `json:"member_count,omitempty" db:"-"`
	IsMember    bool `json:"is_member,omitempty" db:"-"`
}

// CommunityMember records a user's membership in a community
type CommunityMember struct {
	CommunityID int64     `json:"community_id" db:"community_id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}

// Championship metrics.
const (
	ChampionshipMetricDistance   = "distance"
	ChampionshipMetricActivities = "activities"
)

// Championship is a seasonal competition ranked over a fixed date window
type Championship struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,min=3,max=100"`
	Metric    string    `json:"metric" db:"metric" validate:"required,oneof=distance activities"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Active reports whether the championship window contains now
func (c *Championship) Active(now time.Time) bool {
	return !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

// LeaderboardEntry is one ranked row of a leaderboard or championship
// standings
type LeaderboardEntry struct {
	Rank          int     `json:"rank" db:"rank"`
	UserID        int64   `json:"user_id" db:"user_id"`
	Username      string  `json:"username" db:"username"`
	DisplayName   string  `json:"display_name" db:"display_name"`
	AvatarURL     *string `json:"avatar_url,omitempty" db:"avatar_url"`
	TotalDistance float64 `json:"total_distance" db:"total_distance"`
	ActivityCount int     `json:"activity_count" db:"activity_count"`
}

// Leaderboard periods.
const (
	LeaderboardPeriodWeekly  = "weekly"
	LeaderboardPeriodMonthly = "monthly"
	LeaderboardPeriodAll     = "all"
)
