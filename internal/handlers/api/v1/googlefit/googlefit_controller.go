package googlefit

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// Controller handles Google Fit integration endpoints
type Controller struct {
	googleFitService services.GoogleFitService
	builder          *response.Builder
	logger           *zap.Logger
}

// NewController creates the Google Fit controller
func NewController(googleFitService services.GoogleFitService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		googleFitService: googleFitService,
		builder:          builder,
		logger:           logger,
	}
}

// Connect handles POST /api/v1/googlefit/connect. It returns the
// consent URL; the client performs the redirect.
func (c *Controller) Connect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	authURL, err := c.googleFitService.ConnectURL(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, map[string]string{
		"auth_url": authURL,
	})
}

// Callback handles GET /api/v1/googlefit/callback. Google redirects
// here with the state and authorization code.
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		c.builder.WriteError(w, r, services.NewUnauthorizedError("authorization was denied"))
		return
	}

	userID, err := c.googleFitService.HandleCallback(ctx, query.Get("state"), query.Get("code"))
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("google fit connected",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("user_id", userID))

	c.builder.WriteSuccess(w, r, map[string]interface{}{
		"connected": true,
		"user_id":   userID,
	})
}

// Sync handles POST /api/v1/googlefit/sync
func (c *Controller) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	result, err := c.googleFitService.Sync(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, result)
}

// Status handles GET /api/v1/googlefit/status
func (c *Controller) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	status, err := c.googleFitService.Status(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, status)
}

// Disconnect handles DELETE /api/v1/googlefit
func (c *Controller) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	if err := c.googleFitService.Disconnect(ctx, userID); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteNoContent(w, r)
}
