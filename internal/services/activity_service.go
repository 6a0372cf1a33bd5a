package services

import (
	"context"
	"math"
	"time"

	"thetrek/internal/events"
	"thetrek/internal/models"
	"thetrek/internal/repositories"
	"thetrek/internal/validation"

	"go.uber.org/zap"
)

// CreateActivityRequest carries the fields a client supplies when
// recording an activity
type CreateActivityRequest struct {
	Type         string    `json:"type" validate:"required,min=2,max=50"`
	DistanceKM   float64   `json:"distance_km" validate:"required,gt=0,lte=2000"`
	DurationMin  int       `json:"duration_min" validate:"required,gt=0,lte=10080"`
	ActivityDate time.Time `json:"activity_date" validate:"required"`
	PhotoURL     *string   `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// ActivityService manages activity recording and retrieval
type ActivityService interface {
	Create(ctx context.Context, userID int64, req *CreateActivityRequest) (*models.Activity, error)
	GetByID(ctx context.Context, userID, activityID int64) (*models.Activity, error)
	ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.Activity, int64, error)
	Delete(ctx context.Context, userID, activityID int64) error
	GetStats(ctx context.Context, userID int64) (*models.ActivityStats, error)
}

type activityService struct {
	activityRepo repositories.ActivityRepository
	userRepo     repositories.UserRepository
	eventBus     events.EventBus
	logger       *zap.Logger
}

// NewActivityService creates the activity service
func NewActivityService(
	activityRepo repositories.ActivityRepository,
	userRepo repositories.UserRepository,
	eventBus events.EventBus,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		activityRepo: activityRepo,
		userRepo:     userRepo,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// MET values per activity type, used for calorie estimation.
var activityMETs = map[string]float64{
	models.ActivityRun:   9.8,
	models.ActivityWalk:  3.5,
	models.ActivityCycle: 7.5,
	models.ActivityHike:  6.0,
	models.ActivitySwim:  8.0,
}

const (
	defaultMET      = 6.0
	defaultWeightKG = 70.0
)

// EstimateCalories returns the MET-based calorie estimate for an
// activity. Unknown activity types use the default MET.
func EstimateCalories(activityType string, durationMin int, weightKG float64) int {
	met, ok := activityMETs[activityType]
	if !ok {
		met = defaultMET
	}
	if weightKG <= 0 {
		weightKG = defaultWeightKG
	}

	hours := float64(durationMin) / 60.0
	return int(math.Round(met * weightKG * hours))
}

// Create validates, persists and announces a new activity. The badge
// evaluation runs asynchronously off the published event; a failure to
// enqueue never fails the recording.
func (s *activityService) Create(ctx context.Context, userID int64, req *CreateActivityRequest) (*models.Activity, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid activity", err)
	}
	if req.ActivityDate.After(time.Now().Add(24 * time.Hour)) {
		return nil, NewValidationError("activity date cannot be in the future", nil)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", userID)
	}

	weight := defaultWeightKG
	if user.WeightKG != nil {
		weight = *user.WeightKG
	}

	activity := &models.Activity{
		UserID:         userID,
		Type:           req.Type,
		DistanceKM:     req.DistanceKM,
		DurationMin:    req.DurationMin,
		ActivityDate:   req.ActivityDate,
		CaloriesBurned: EstimateCalories(req.Type, req.DurationMin, weight),
		PhotoURL:       req.PhotoURL,
		Source:         models.SourceManual,
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, NewInternalError("failed to record activity")
	}

	s.publishCreated(ctx, activity)

	return activity, nil
}

func (s *activityService) publishCreated(ctx context.Context, activity *models.Activity) {
	if s.eventBus == nil {
		return
	}

	event := events.NewActivityCreatedEvent(
		activity.ID, activity.UserID, activity.Type,
		activity.DistanceKM, float64(activity.DurationMin),
		activity.ActivityDate, activity.Source,
	)
	if err := s.eventBus.PublishAsync(ctx, event); err != nil {
		s.logger.Warn("failed to publish activity created event",
			zap.Int64("activity_id", activity.ID),
			zap.Error(err),
		)
	}
}

// GetByID returns an activity owned by the user
func (s *activityService) GetByID(ctx context.Context, userID, activityID int64) (*models.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, NewInternalError("failed to load activity")
	}
	if activity == nil || activity.UserID != userID {
		return nil, EntityNotFoundError("activity", activityID)
	}

	return activity, nil
}

// ListByUser returns the user's activities, newest first
func (s *activityService) ListByUser(ctx context.Context, userID int64, params models.PaginationParams) ([]*models.Activity, int64, error) {
	activities, total, err := s.activityRepo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, 0, NewInternalError("failed to list activities")
	}

	return activities, total, nil
}

// Delete removes an activity owned by the user. Badges earned from it
// are permanent and are not revoked.
func (s *activityService) Delete(ctx context.Context, userID, activityID int64) error {
	activity, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return NewInternalError("failed to load activity")
	}
	if activity == nil || activity.UserID != userID {
		return EntityNotFoundError("activity", activityID)
	}

	if err := s.activityRepo.Delete(ctx, activityID, userID); err != nil {
		return NewInternalError("failed to delete activity")
	}

	if s.eventBus != nil {
		event := events.NewActivityDeletedEvent(activityID, userID)
		if err := s.eventBus.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("failed to publish activity deleted event",
				zap.Int64("activity_id", activityID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// GetStats returns the user's aggregate statistics including streak
func (s *activityService) GetStats(ctx context.Context, userID int64) (*models.ActivityStats, error) {
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
