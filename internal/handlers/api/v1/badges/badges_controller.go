package badges

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// Controller handles badge endpoints
type Controller struct {
	achievementService services.AchievementService
	builder            *response.Builder
	logger             *zap.Logger
}

// NewController creates the badges controller
func NewController(achievementService services.AchievementService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		achievementService: achievementService,
		builder:            builder,
		logger:             logger,
	}
}

// Catalog handles GET /api/v1/badges. An optional ?category= query
// narrows the catalog to one category.
func (c *Controller) Catalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	badges, err := c.achievementService.GetCatalog(ctx, r.URL.Query().Get("category"))
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, badges)
}

// Earned handles GET /api/v1/badges/earned
func (c *Controller) Earned(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	badges, err := c.achievementService.GetEarnedBadges(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, badges)
}

// Progress handles GET /api/v1/badges/progress
func (c *Controller) Progress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	progress, err := c.achievementService.GetBadgeProgress(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, progress)
}

// Recheck handles POST /api/v1/badges/recheck. It runs a full badge
// evaluation pass outside the usual activity-created trigger, useful
// after a bulk import.
func (c *Controller) Recheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	awarded, err := c.achievementService.CheckAndAwardBadges(ctx, userID, 0)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	if len(awarded) > 0 {
		c.logger.Info("recheck awarded badges",
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
			zap.Int64("user_id", userID),
			zap.Int("awarded", len(awarded)))
	}

	c.builder.WriteSuccess(w, r, map[string]interface{}{
		"awarded": awarded,
	})
}
