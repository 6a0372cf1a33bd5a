package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thetrek/internal/models"
	"thetrek/internal/repositories"
)

func TestCommunityCreate(t *testing.T) {
	t.Run("creates with the creator enrolled", func(t *testing.T) {
		repo := &mockCommunityRepo{}
		svc := NewCommunityService(repo, zap.NewNop())

		community, err := svc.Create(context.Background(), 7, &CreateCommunityRequest{
			Name: "Morning Crew",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), community.CreatorID)
		assert.NotZero(t, community.ID)
	})

	t.Run("duplicate name maps to a conflict", func(t *testing.T) {
		repo := &mockCommunityRepo{
			createErr: fmt.Errorf("failed to create community: %w", repositories.ErrDuplicate),
		}
		svc := NewCommunityService(repo, zap.NewNop())

		_, err := svc.Create(context.Background(), 7, &CreateCommunityRequest{
			Name: "Morning Crew",
		})
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
	})

	t.Run("name too short is rejected", func(t *testing.T) {
		svc := NewCommunityService(&mockCommunityRepo{}, zap.NewNop())

		_, err := svc.Create(context.Background(), 7, &CreateCommunityRequest{Name: "ab"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestCommunityJoin(t *testing.T) {
	t.Run("missing community is not found", func(t *testing.T) {
		svc := NewCommunityService(&mockCommunityRepo{}, zap.NewNop())

		err := svc.Join(context.Background(), 99, 7)
		require.Error(t, err)
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("existing community accepts the member", func(t *testing.T) {
		repo := &mockCommunityRepo{
			communities: map[int64]*models.Community{
				4: {ID: 4, Name: "Morning Crew"},
			},
			nextID: 4,
		}
		svc := NewCommunityService(repo, zap.NewNop())

		require.NoError(t, svc.Join(context.Background(), 4, 7))
	})
}
