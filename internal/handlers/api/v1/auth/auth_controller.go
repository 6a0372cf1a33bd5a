package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// Controller handles authentication endpoints
type Controller struct {
	authService services.AuthService
	builder     *response.Builder
	logger      *zap.Logger
}

// NewController creates the auth controller
func NewController(authService services.AuthService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		authService: authService,
		builder:     builder,
		logger:      logger,
	}
}

// Register handles POST /api/v1/auth/register
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	result, err := c.authService.Register(ctx, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("user registered",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("user_id", result.User.ID),
		zap.String("username", result.User.Username))

	c.builder.WriteCreated(w, r, result)
}

// Login handles POST /api/v1/auth/login
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	result, err := c.authService.Login(ctx, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}
	if req.RefreshToken == "" {
		c.builder.WriteError(w, r, services.NewValidationError("refresh_token is required", nil))
		return
	}

	tokens, err := c.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, tokens)
}

// Logout handles POST /api/v1/auth/logout
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	if err := c.authService.Logout(ctx, req.RefreshToken); err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteNoContent(w, r)
}
