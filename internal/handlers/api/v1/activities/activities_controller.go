package activities

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// Controller handles activity endpoints
type Controller struct {
	activityService services.ActivityService
	builder         *response.Builder
	logger          *zap.Logger
}

// NewController creates the activities controller
func NewController(activityService services.ActivityService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		activityService: activityService,
		builder:         builder,
		logger:          logger,
	}
}

// Create handles POST /api/v1/activities
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	userID := contextutils.GetUserID(r.Context())
	activity, err := c.activityService.Create(ctx, userID, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("activity recorded",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("user_id", userID),
		zap.Int64("activity_id", activity.ID),
		zap.String("type", activity.Type))

	c.builder.WriteCreated(w, r, activity)
}

// List handles GET /api/v1/activities
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	params := response.ParsePagination(r)

	activities, total, err := c.activityService.ListByUser(ctx, userID, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, activities, response.PageNumber(params), params.Limit, total)
}

// Get handles GET /api/v1/activities/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	activityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	userID := contextutils.GetUserID(r.Context())
	activity, err := c.activityService.GetByID(ctx, userID, activityID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, activity)
}

// Delete handles DELETE /api/v1/activities/{id}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	activityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	userID := contextutils.GetUserID(r.Context())
	if err := c.activityService.Delete(ctx, userID, activityID); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteNoContent(w, r)
}

// Stats handles GET /api/v1/activities/stats
func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	stats, err := c.activityService.GetStats(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, stats)
}

func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("invalid "+param+" parameter", err)
	}
	return id, nil
}
