package events

import "time"

// Event type names.
const (
	EventActivityCreated = "activity.created"
	EventActivityDeleted = "activity.deleted"
	EventBadgeAwarded    = "badge.awarded"
	EventUserCreated     = "user.created"
	EventGoogleFitSynced = "googlefit.synced"
	EventAvatarUploaded  = "avatar.uploaded"
)

// ActivityCreatedEvent is emitted after an activity is persisted. It
// drives badge evaluation in the background.
type ActivityCreatedEvent struct {
	BaseEvent
	ActivityID   int64     `json:"activity_id"`
	ActivityType string    `json:"activity_type"`
	DistanceKM   float64   `json:"distance_km"`
	DurationMin  float64   `json:"duration_min"`
	ActivityDate time.Time `json:"activity_date"`
	Source       string    `json:"source"`
}

// NewActivityCreatedEvent creates an activity created event
func NewActivityCreatedEvent(activityID, userID int64, activityType string, distanceKM, durationMin float64, activityDate time.Time, source string) *ActivityCreatedEvent {
	return &ActivityCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventActivityCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ActivityID:   activityID,
		ActivityType: activityType,
		DistanceKM:   distanceKM,
		DurationMin:  durationMin,
		ActivityDate: activityDate,
		Source:       source,
	}
}

// ActivityDeletedEvent is emitted after an activity is removed
type ActivityDeletedEvent struct {
	BaseEvent
	ActivityID int64 `json:"activity_id"`
}

// NewActivityDeletedEvent creates an activity deleted event
func NewActivityDeletedEvent(activityID, userID int64) *ActivityDeletedEvent {
	return &ActivityDeletedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventActivityDeleted,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ActivityID: activityID,
	}
}

// BadgeAwardedEvent is emitted when a user earns a badge
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeID   int64  `json:"badge_id"`
	BadgeName string `json:"badge_name"`
}

// NewBadgeAwardedEvent creates a badge awarded event
func NewBadgeAwardedEvent(badgeID, userID int64, badgeName string) *BadgeAwardedEvent {
	return &BadgeAwardedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventBadgeAwarded,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		BadgeID:   badgeID,
		BadgeName: badgeName,
	}
}

// UserCreatedEvent is emitted after registration
type UserCreatedEvent struct {
	BaseEvent
	Email    string `json:"email"`
	Username string `json:"username"`
}

// NewUserCreatedEvent creates a user created event
func NewUserCreatedEvent(userID int64, email, username string) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventUserCreated,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		Email:    email,
		Username: username,
	}
}

// GoogleFitSyncedEvent is emitted after a Google Fit import completes
type GoogleFitSyncedEvent struct {
	BaseEvent
	ImportedCount int `json:"imported_count"`
	SkippedCount  int `json:"skipped_count"`
}

// NewGoogleFitSyncedEvent creates a Google Fit synced event
func NewGoogleFitSyncedEvent(userID int64, imported, skipped int) *GoogleFitSyncedEvent {
	return &GoogleFitSyncedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventGoogleFitSynced,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		ImportedCount: imported,
		SkippedCount:  skipped,
	}
}

// AvatarUploadedEvent is emitted when a profile image upload succeeds
type AvatarUploadedEvent struct {
	BaseEvent
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	FileSize int64  `json:"file_size"`
}

// NewAvatarUploadedEvent creates an avatar uploaded event
func NewAvatarUploadedEvent(userID int64, url, publicID string, fileSize int64) *AvatarUploadedEvent {
	return &AvatarUploadedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventAvatarUploaded,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		URL:      url,
		PublicID: publicID,
		FileSize: fileSize,
	}
}
