package services

import (
	"context"

	"thetrek/internal/models"
	"thetrek/internal/repositories"
	"thetrek/internal/validation"

	"go.uber.org/zap"
)

// UpdateProfileRequest carries the mutable profile fields
type UpdateProfileRequest struct {
	DisplayName *string  `json:"display_name,omitempty" validate:"omitempty,min=1,max=100"`
	WeightKG    *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lt=500"`
}

// UserService manages user profiles
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int64, upload *FileUploadRequest) (*models.User, error)
}

type userService struct {
	userRepo    repositories.UserRepository
	fileService FileService
	logger      *zap.Logger
}

// NewUserService creates the user service
func NewUserService(
	userRepo repositories.UserRepository,
	fileService FileService,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		fileService: fileService,
		logger:      logger,
	}
}

// GetProfile returns the user with badge and activity counts
func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", userID)
	}

	badges, activities, err := s.userRepo.GetProfileCounts(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load profile counts")
	}
	user.BadgeCount = badges
	user.ActivityCount = activities

	return user, nil
}

// UpdateProfile applies partial profile changes
func (s *userService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid profile update", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", userID)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.WeightKG != nil {
		user.WeightKG = req.WeightKG
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, NewInternalError("failed to update user")
	}

	return user, nil
}

// UploadAvatar replaces the user's profile image. The previous image
// is removed best effort after the new one is stored.
func (s *userService) UploadAvatar(ctx context.Context, userID int64, upload *FileUploadRequest) (*models.User, error) {
	if s.fileService == nil {
		return nil, NewServiceUnavailableError("image uploads are not configured")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", userID)
	}

	upload.UserID = userID
	result, err := s.fileService.UploadImage(ctx, upload)
	if err != nil {
		return nil, err
	}

	oldPublicID := user.AvatarPublicID

	if err := s.userRepo.UpdateAvatar(ctx, userID, result.URL, result.PublicID); err != nil {
		return nil, NewInternalError("failed to store avatar")
	}

	if oldPublicID != nil && *oldPublicID != "" {
		if err := s.fileService.DeleteFile(ctx, *oldPublicID); err != nil {
			s.logger.Warn("failed to delete previous avatar",
				zap.Int64("user_id", userID),
				zap.String("public_id", *oldPublicID),
			)
		}
	}

	user.AvatarURL = &result.URL
	user.AvatarPublicID = &result.PublicID

	return user, nil
}
