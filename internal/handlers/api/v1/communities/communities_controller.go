package communities

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

// Controller handles community endpoints
type Controller struct {
	communityService   services.CommunityService
	leaderboardService services.LeaderboardService
	builder            *response.Builder
	logger             *zap.Logger
}

// NewController creates the communities controller
func NewController(
	communityService services.CommunityService,
	leaderboardService services.LeaderboardService,
	builder *response.Builder,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		communityService:   communityService,
		leaderboardService: leaderboardService,
		builder:            builder,
		logger:             logger,
	}
}

// Create handles POST /api/v1/communities
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.CreateCommunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	userID := contextutils.GetUserID(r.Context())
	community, err := c.communityService.Create(ctx, userID, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("community created",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("community_id", community.ID),
		zap.Int64("creator_id", userID))

	c.builder.WriteCreated(w, r, community)
}

// List handles GET /api/v1/communities
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	viewerID := contextutils.GetUserID(r.Context())
	params := response.ParsePagination(r)

	communities, total, err := c.communityService.List(ctx, viewerID, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, communities, response.PageNumber(params), params.Limit, total)
}

// Get handles GET /api/v1/communities/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	communityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	viewerID := contextutils.GetUserID(r.Context())
	community, err := c.communityService.GetByID(ctx, communityID, viewerID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, community)
}

// Join handles POST /api/v1/communities/{id}/join
func (c *Controller) Join(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	communityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	userID := contextutils.GetUserID(r.Context())
	if err := c.communityService.Join(ctx, communityID, userID); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteNoContent(w, r)
}

// Leave handles POST /api/v1/communities/{id}/leave
func (c *Controller) Leave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	communityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	userID := contextutils.GetUserID(r.Context())
	if err := c.communityService.Leave(ctx, communityID, userID); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteNoContent(w, r)
}

// Leaderboard handles GET /api/v1/communities/{id}/leaderboard
func (c *Controller) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	communityID, err := parseID(r, "id")
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	params := response.ParsePagination(r)
	period := r.URL.Query().Get("period")

	page, err := c.leaderboardService.GetCommunity(ctx, communityID, period, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, page, response.PageNumber(params), params.Limit, page.Total)
}

func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.NewValidationError("invalid "+param+" parameter", err)
	}
	return id, nil
}
