package services

import (
	"context"
	"time"

	"thetrek/internal/models"
	"thetrek/internal/repositories"
	"thetrek/internal/validation"

	"go.uber.org/zap"
)

// CreateChampionshipRequest carries the fields for a new championship
type CreateChampionshipRequest struct {
	Name     string    `json:"name" validate:"required,min=3,max=100"`
	Metric   string    `json:"metric" validate:"required,oneof=distance activities"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
}

// ChampionshipStandings bundles a championship with a page of its ranks
type ChampionshipStandings struct {
	Championship *models.Championship       `json:"championship"`
	Entries      []*models.LeaderboardEntry `json:"entries"`
	Total        int64                      `json:"total"`
}

// ChampionshipService manages seasonal competitions
type ChampionshipService interface {
	Create(ctx context.Context, req *CreateChampionshipRequest) (*models.Championship, error)
	List(ctx context.Context, params models.PaginationParams) ([]*models.Championship, int64, error)
	GetStandings(ctx context.Context, championshipID int64, params models.PaginationParams) (*ChampionshipStandings, error)
}

type championshipService struct {
	championshipRepo repositories.ChampionshipRepository
	logger           *zap.Logger
}

// NewChampionshipService creates the championship service
func NewChampionshipService(championshipRepo repositories.ChampionshipRepository, logger *zap.Logger) ChampionshipService {
	return &championshipService{
		championshipRepo: championshipRepo,
		logger:           logger,
	}
}

// Create creates a championship
func (s *championshipService) Create(ctx context.Context, req *CreateChampionshipRequest) (*models.Championship, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid championship", err)
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, NewValidationError("championship must end after it starts", nil)
	}

	championship := &models.Championship{
		Name:     req.Name,
		Metric:   req.Metric,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}

	if err := s.championshipRepo.Create(ctx, championship); err != nil {
		return nil, NewInternalError("failed to create championship")
	}

	s.logger.Info("championship created",
		zap.Int64("championship_id", championship.ID),
		zap.String("metric", championship.Metric),
	)

	return championship, nil
}

// List returns championships, most recently starting first
func (s *championshipService) List(ctx context.Context, params models.PaginationParams) ([]*models.Championship, int64, error) {
	championships, total, err := s.championshipRepo.List(ctx, params)
	if err != nil {
		return nil, 0, NewInternalError("failed to list championships")
	}

	return championships, total, nil
}

// GetStandings ranks the championship's window by its metric
func (s *championshipService) GetStandings(ctx context.Context, championshipID int64, params models.PaginationParams) (*ChampionshipStandings, error) {
	championship, err := s.championshipRepo.GetByID(ctx, championshipID)
	if err != nil {
		return nil, NewInternalError("failed to load championship")
	}
	if championship == nil {
		return nil, EntityNotFoundError("championship", championshipID)
	}

	entries, total, err := s.championshipRepo.GetStandings(ctx, championship, params)
	if err != nil {
		return nil, NewInternalError("failed to load standings")
	}

	return &ChampionshipStandings{
		Championship: championship,
		Entries:      entries,
		Total:        total,
	}, nil
}
