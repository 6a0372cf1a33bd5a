package services

import (
	"context"
	"errors"

	"thetrek/internal/models"
	"thetrek/internal/repositories"
	"thetrek/internal/validation"

	"go.uber.org/zap"
)

// CreateCommunityRequest carries the fields for a new community
type CreateCommunityRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// CommunityService manages communities and membership
type CommunityService interface {
	Create(ctx context.Context, creatorID int64, req *CreateCommunityRequest) (*models.Community, error)
	GetByID(ctx context.Context, communityID, viewerID int64) (*models.Community, error)
	List(ctx context.Context, viewerID int64, params models.PaginationParams) ([]*models.Community, int64, error)
	Join(ctx context.Context, communityID, userID int64) error
	Leave(ctx context.Context, communityID, userID int64) error
}

type communityService struct {
	communityRepo repositories.CommunityRepository
	logger        *zap.Logger
}

// NewCommunityService creates the community service
func NewCommunityService(communityRepo repositories.CommunityRepository, logger *zap.Logger) CommunityService {
	return &communityService{
		communityRepo: communityRepo,
		logger:        logger,
	}
}

// Create creates a community with the creator as its first member
func (s *communityService) Create(ctx context.Context, creatorID int64, req *CreateCommunityRequest) (*models.Community, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid community", err)
	}

	community := &models.Community{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   creatorID,
	}

	if err := s.communityRepo.Create(ctx, community); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, EntityAlreadyExistsError("community", "name", req.Name)
		}
		return nil, NewInternalError("failed to create community")
	}

	s.logger.Info("community created",
		zap.Int64("community_id", community.ID),
		zap.Int64("creator_id", creatorID),
	)

	return community, nil
}

// GetByID returns a community annotated with the viewer's membership
func (s *communityService) GetByID(ctx context.Context, communityID, viewerID int64) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, NewInternalError("failed to load community")
	}
	if community == nil {
		return nil, EntityNotFoundError("community", communityID)
	}

	if viewerID > 0 {
		member, err := s.communityRepo.IsMember(ctx, communityID, viewerID)
		if err != nil {
			return nil, NewInternalError("failed to check membership")
		}
		community.IsMember = member
	}

	return community, nil
}

// List returns communities ordered by member count
func (s *communityService) List(ctx context.Context, viewerID int64, params models.PaginationParams) ([]*models.Community, int64, error) {
	communities, total, err := s.communityRepo.List(ctx, params)
	if err != nil {
		return nil, 0, NewInternalError("failed to list communities")
	}

	if viewerID > 0 {
		for _, c := range communities {
			member, err := s.communityRepo.IsMember(ctx, c.ID, viewerID)
			if err != nil {
				return nil, 0, NewInternalError("failed to check membership")
			}
			c.IsMember = member
		}
	}

	return communities, total, nil
}

// Join adds the user to a community. Joining twice is a no-op.
func (s *communityService) Join(ctx context.Context, communityID, userID int64) error {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return NewInternalError("failed to load community")
	}
	if community == nil {
		return EntityNotFoundError("community", communityID)
	}

	if err := s.communityRepo.Join(ctx, communityID, userID); err != nil {
		return NewInternalError("failed to join community")
	}

	return nil
}

// Leave removes the user from a community
func (s *communityService) Leave(ctx context.Context, communityID, userID int64) error {
	member, err := s.communityRepo.IsMember(ctx, communityID, userID)
	if err != nil {
		return NewInternalError("failed to check membership")
	}
	if !member {
		return NewBusinessError("not a member of this community", "NOT_A_MEMBER")
	}

	if err := s.communityRepo.Leave(ctx, communityID, userID); err != nil {
		return NewInternalError("failed to leave community")
	}

	return nil
}
