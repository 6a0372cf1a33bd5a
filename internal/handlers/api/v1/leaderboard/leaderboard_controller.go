package leaderboard

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/response"
	"thetrek/internal/services"
)

// Controller handles leaderboard endpoints
type Controller struct {
	leaderboardService services.LeaderboardService
	builder            *response.Builder
	logger             *zap.Logger
}

// NewController creates the leaderboard controller
func NewController(leaderboardService services.LeaderboardService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		leaderboardService: leaderboardService,
		builder:            builder,
		logger:             logger,
	}
}

// Global handles GET /api/v1/leaderboard?period=weekly|monthly|all
func (c *Controller) Global(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	params := response.ParsePagination(r)
	period := r.URL.Query().Get("period")

	page, err := c.leaderboardService.GetGlobal(ctx, period, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, page, response.PageNumber(params), params.Limit, page.Total)
}
