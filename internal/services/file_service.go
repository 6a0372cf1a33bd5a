package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"thetrek/internal/events"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// FileUploadRequest describes an incoming image upload
type FileUploadRequest struct {
	File        io.Reader
	Filename    string
	ContentType string
	Size        int64
	UserID      int64
}

// FileUploadResult is the stored location of an uploaded file
type FileUploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// FileService manages image uploads
type FileService interface {
	UploadImage(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error)
	DeleteFile(ctx context.Context, publicID string) error
}

// FileServiceConfig holds file service limits
type FileServiceConfig struct {
	MaxImageSize      int64         `json:"max_image_size"`
	AllowedImageTypes []string      `json:"allowed_image_types"`
	UploadTimeout     time.Duration `json:"upload_timeout"`
	MaxRetries        int           `json:"max_retries"`
}

// DefaultFileConfig returns default file service configuration
func DefaultFileConfig() *FileServiceConfig {
	return &FileServiceConfig{
		MaxImageSize: 5 * 1024 * 1024,
		AllowedImageTypes: []string{
			"image/jpeg", "image/jpg", "image/png", "image/webp",
		},
		UploadTimeout: 2 * time.Minute,
		MaxRetries:    3,
	}
}

type fileService struct {
	cloudinary *cloudinary.Cloudinary
	eventBus   events.EventBus
	logger     *zap.Logger
	config     *FileServiceConfig
}

// NewFileService creates the file service
func NewFileService(
	cld *cloudinary.Cloudinary,
	eventBus events.EventBus,
	logger *zap.Logger,
	config *FileServiceConfig,
) FileService {
	if config == nil {
		config = DefaultFileConfig()
	}

	return &fileService{
		cloudinary: cld,
		eventBus:   eventBus,
		logger:     logger,
		config:     config,
	}
}

// UploadImage validates and uploads an image, retrying transient
// upload failures with exponential backoff
func (s *fileService) UploadImage(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error) {
	if err := s.validateImageUpload(req); err != nil {
		return nil, NewValidationError("image validation failed", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:         s.uploadFolder(req.UserID),
		ResourceType:   "image",
		Transformation: "w_1024,h_1024,c_limit,f_auto,q_auto",
		UseFilename:    boolPtr(false),
		UniqueFilename: boolPtr(true),
		Tags:           []string{"thetrek", "user_upload"},
	}

	var result *uploader.UploadResult
	operation := func() error {
		var err error
		result, err = s.cloudinary.Upload.Upload(uploadCtx, req.File, uploadParams)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.config.MaxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, uploadCtx)); err != nil {
		s.logger.Error("failed to upload image",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.String("filename", req.Filename),
		)
		return nil, NewInternalError("failed to upload image")
	}

	uploadResult := &FileUploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Size:     int64(result.Bytes),
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
	}

	if s.eventBus != nil {
		event := events.NewAvatarUploadedEvent(req.UserID, uploadResult.URL, uploadResult.PublicID, uploadResult.Size)
		if err := s.eventBus.PublishAsync(ctx, event); err != nil {
			s.logger.Warn("failed to publish upload event", zap.Error(err))
		}
	}

	s.logger.Info("image uploaded",
		zap.Int64("user_id", req.UserID),
		zap.String("public_id", uploadResult.PublicID),
		zap.Int64("size", uploadResult.Size),
	)

	return uploadResult, nil
}

// DeleteFile removes an uploaded file
func (s *fileService) DeleteFile(ctx context.Context, publicID string) error {
	if publicID == "" {
		return NewValidationError("public ID is required", nil)
	}

	deleteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.cloudinary.Upload.Destroy(deleteCtx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		s.logger.Error("failed to delete file",
			zap.Error(err),
			zap.String("public_id", publicID),
		)
		return NewInternalError("failed to delete file")
	}

	if result.Result != "ok" && result.Result != "not found" {
		return NewInternalError("file deletion was not successful")
	}

	return nil
}

func (s *fileService) validateImageUpload(req *FileUploadRequest) error {
	if req.Size > s.config.MaxImageSize {
		return fmt.Errorf("image too large (max %d bytes)", s.config.MaxImageSize)
	}

	for _, allowed := range s.config.AllowedImageTypes {
		if req.ContentType == allowed {
			return nil
		}
	}

	return fmt.Errorf("unsupported image type: %s", req.ContentType)
}

func (s *fileService) uploadFolder(userID int64) string {
	now := time.Now()
	return fmt.Sprintf("thetrek/avatars/%d/%02d/user_%d", now.Year(), now.Month(), userID)
}

func boolPtr(b bool) *bool {
	return &b
}
