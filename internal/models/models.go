package models

import (
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User represents a registered trekker
type User struct {
	ID       int64  `json:"id" db:"id"`
	Email    string `json:"email" db:"email" validate:"required,email,max=320"`
	Username string `json:"username" db:"username" validate:"required,min=3,max=50,alphanum"`

	// Authentication
	PasswordHash string `json:"-" db:"password_hash"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	// Profile
	DisplayName    string   `json:"display_name" db:"display_name"`
	AvatarURL      *string  `json:"avatar_url,omitempty" db:"avatar_url"`
	AvatarPublicID *string  `json:"-" db:"avatar_public_id"`
	WeightKG       *float64 `json:"weight_kg,omitempty" db:"weight_kg" validate:"omitempty,gt=0,lt=500"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Computed/joined fields (not in DB)
	BadgeCount    int `json:"badge_count,omitempty" db:"-"`
	ActivityCount int `json:"activity_count,omitempty" db:"-"`
}

// Activity types recognized by the calorie estimator. Other values are
// accepted and estimated with the default MET.
const (
	ActivityRun   = "run"
	ActivityWalk  = "walk"
	ActivityCycle = "cycle"
	ActivityHike  = "hike"
	ActivitySwim  = "swim"
)

// Activity sources.
const (
	SourceManual    = "manual"
	SourceGoogleFit = "googlefit"
)

// Activity represents a single recorded fitness activity.
// Activities are immutable once created.
type Activity struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	Type           string    `json:"type" db:"type" validate:"required,min=2,max=50"`
	DistanceKM     float64   `json:"distance_km" db:"distance_km" validate:"required,gt=0"`
	DurationMin    int       `json:"duration_min" db:"duration_min" validate:"required,gt=0"`
	ActivityDate   time.Time `json:"activity_date" db:"activity_date"`
	CaloriesBurned int       `json:"calories_burned" db:"calories_burned"`
	PhotoURL       *string   `json:"photo_url,omitempty" db:"photo_url"`
	Source         string    `json:"source" db:"source"` // "manual" or "googlefit"
	ExternalID     *string   `json:"-" db:"external_id"` // Google Fit session id, used for import dedupe
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// PaceMinPerKM returns the activity's pace in minutes per kilometre.
func (a *Activity) PaceMinPerKM() float64 {
	if a.DistanceKM <= 0 {
		return 0
	}
	return float64(a.DurationMin) / a.DistanceKM
}

// ActivityStats is the aggregate statistics block the achievement
// engine evaluates criteria against. Computed on demand, never stored.
type ActivityStats struct {
	ActivityCount        int     `json:"activity_count"`
	TotalDistanceKM      float64 `json:"total_distance_km"`
	ActivityTypesCount   int     `json:"activity_types_count"`
	FastestPaceMinPerKM  float64 `json:"fastest_pace_min_per_km"`
	LongestDistanceKM    float64 `json:"longest_distance_km"`
	LongestDurationMin   int     `json:"longest_duration_min"`
	WeekendActivityCount int     `json:"weekend_activity_count"`
	CurrentStreakDays    int     `json:"current_streak_days"`
}

// UndefinedPace is reported as the fastest pace for users with no
// activities; any real pace compares as faster.
const UndefinedPace = 999.0

// ===============================
// PAGINATION
// ===============================

// PaginationParams holds pagination request parameters
type PaginationParams struct {
	Limit  int `json:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `json:"offset" validate:"omitempty,min=0"`
}

// Normalize applies defaults and caps to pagination parameters
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PaginationMeta contains pagination metadata for responses
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// PaginatedResponse wraps a page of results with pagination metadata
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// NewPaginationMeta builds pagination metadata from params and a total count
func NewPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	currentPage := (params.Offset / params.Limit) + 1
	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))

	return PaginationMeta{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: params.Limit,
		HasNext:      int64(params.Offset+params.Limit) < total,
		HasPrev:      params.Offset > 0,
	}
}
