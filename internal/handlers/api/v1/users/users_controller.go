package users

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

// Avatar uploads are bounded before multipart parsing even starts.
const maxAvatarMemory = 10 << 20

// Controller handles user profile endpoints
type Controller struct {
	userService services.UserService
	builder     *response.Builder
	logger      *zap.Logger
}

// NewController creates the users controller
func NewController(userService services.UserService, builder *response.Builder, logger *zap.Logger) *Controller {
	return &Controller{
		userService: userService,
		builder:     builder,
		logger:      logger,
	}
}

// GetMe handles GET /api/v1/users/me
func (c *Controller) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := contextutils.GetUserID(r.Context())
	user, err := c.userService.GetProfile(ctx, userID)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, user)
}

// UpdateMe handles PATCH /api/v1/users/me
func (c *Controller) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	userID := contextutils.GetUserID(r.Context())
	user, err := c.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.builder.WriteSuccess(w, r, user)
}

// UploadAvatar handles POST /api/v1/users/me/avatar
func (c *Controller) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarMemory)
	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		c.builder.WriteError(w, r, services.NewValidationError("avatar file is required", err))
		return
	}
	defer file.Close()

	userID := contextutils.GetUserID(r.Context())
	user, err := c.userService.UploadAvatar(ctx, userID, &services.FileUploadRequest{
		File:        file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		UserID:      userID,
	})
	if err != nil {
		c.builder.WriteError(w, r, err)
		return
	}

	c.logger.Info("avatar updated",
		zap.String("request_id", contextutils.GetRequestID(r.Context())),
		zap.Int64("user_id", userID))

	c.builder.WriteSuccess(w, r, user)
}
