package championships

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

// Controller handles championship endpoints
type Controller struct {
	championshipService services.ChampionshipService
	builder             *response.Builder
	logger              *zap.Logger
}

// NewController creates the championships controller
func NewController(championshipService services.ChampionshipService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		championshipService: championshipService,
		builder:             builder,
		logger:              logger,
	}
}

// Create handles POST /api/v1/championships
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.CreateChampionshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	championship, err := c.championshipService.Create(ctx, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("championship created",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("championship_id", championship.ID),
		zap.String("metric", championship.Metric))

	c.builder.WriteCreated(w, r, championship)
}

// List handles GET /api/v1/championships
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	params := response.ParsePagination(r)
	championships, total, err := c.championshipService.List(ctx, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, championships, response.PageNumber(params), params.Limit, total)
}

// Standings handles GET /api/v1/championships/{id}/standings
func (c *Controller) Standings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	raw := chi.URLParam(r, "id")
	championshipID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || championshipID <= 0 {
		c.builder.WriteError(w, r, services.NewValidationError("invalid id parameter", err))
		return
	}

	params := response.ParsePagination(r)
	standings, err := c.championshipService.GetStandings(ctx, championshipID, params)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WritePaginated(w, r, standings, response.PageNumber(params), params.Limit, standings.Total)
}
