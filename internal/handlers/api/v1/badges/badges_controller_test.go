package badges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"thetrek/internal/contextutils"
	"thetrek/internal/models"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// mockAchievementService is a hand-rolled achievement service for
// controller tests
type mockAchievementService struct {
	catalog    []*models.Badge
	earned     []*models.BadgeWithStatus
	progress   []*models.BadgeProgress
	awarded    []*models.Badge
	err        error
	recheckFor int64
	catalogCat string
}

func (m *mockAchievementService) CheckAndAwardBadges(ctx context.Context, userID, activityID int64) ([]*models.Badge, error) {
	m.recheckFor = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.awarded, nil
}

func (m *mockAchievementService) GetCatalog(ctx context.Context, category string) ([]*models.Badge, error) {
	m.catalogCat = category
	if m.err != nil {
		return nil, m.err
	}
	return m.catalog, nil
}

func (m *mockAchievementService) GetEarnedBadges(ctx context.Context, userID int64) ([]*models.BadgeWithStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.earned, nil
}

func (m *mockAchievementService) GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.progress, nil
}

func newTestController(svc services.AchievementService) *Controller {
	logger := zap.NewNop()
	builder := response.NewBuilder(response.DefaultConfig(), logger)
	return NewController(svc, builder, logger)
}

func authenticatedRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(contextutils.WithUserID(req.Context(), userID))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return &resp
}

func TestCatalog(t *testing.T) {
	svc := &mockAchievementService{
		catalog: []*models.Badge{
			{ID: 1, Name: "First Steps", CriteriaType: models.CriteriaActivityCount, CriteriaValue: 1},
			{ID: 2, Name: "Marathon", CriteriaType: models.CriteriaSingleDistance, CriteriaValue: 42.2},
		},
	}
	controller := newTestController(svc)

	rec := httptest.NewRecorder()
	controller.Catalog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	badges, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, badges, 2)
	assert.Empty(t, svc.catalogCat)
}

func TestCatalogCategoryFilter(t *testing.T) {
	t.Run("passes category through to the service", func(t *testing.T) {
		svc := &mockAchievementService{
			catalog: []*models.Badge{
				{ID: 5, Name: "Early Bird", Category: models.BadgeCategorySpecial},
			},
		}
		controller := newTestController(svc)

		rec := httptest.NewRecorder()
		controller.Catalog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/badges?category=special", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.BadgeCategorySpecial, svc.catalogCat)
	})

	t.Run("unknown category is a client error", func(t *testing.T) {
		svc := &mockAchievementService{err: services.NewValidationError("unknown badge category: consistency", nil)}
		controller := newTestController(svc)

		rec := httptest.NewRecorder()
		controller.Catalog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/badges?category=consistency", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
	})
}

func TestEarned(t *testing.T) {
	earnedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := &mockAchievementService{
		earned: []*models.BadgeWithStatus{
			{
				Badge:    models.Badge{ID: 1, Name: "First Steps"},
				Earned:   true,
				EarnedAt: &earnedAt,
			},
		},
	}
	controller := newTestController(svc)

	rec := httptest.NewRecorder()
	controller.Earned(rec, authenticatedRequest(http.MethodGet, "/api/v1/badges/earned", 42))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestProgress(t *testing.T) {
	svc := &mockAchievementService{
		progress: []*models.BadgeProgress{
			{
				Badge:   models.Badge{ID: 1, Name: "Ten K", CriteriaType: models.CriteriaTotalDistance, CriteriaValue: 10},
				Current: 5,
				Target:  10,
				Percent: 50,
			},
		},
	}
	controller := newTestController(svc)

	rec := httptest.NewRecorder()
	controller.Progress(rec, authenticatedRequest(http.MethodGet, "/api/v1/badges/progress", 42))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestRecheck(t *testing.T) {
	t.Run("returns newly awarded badges", func(t *testing.T) {
		svc := &mockAchievementService{
			awarded: []*models.Badge{{ID: 3, Name: "Streak Week"}},
		}
		controller := newTestController(svc)

		rec := httptest.NewRecorder()
		controller.Recheck(rec, authenticatedRequest(http.MethodPost, "/api/v1/badges/recheck", 42))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), svc.recheckFor)

		resp := decodeResponse(t, rec)
		require.True(t, resp.Success)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, data, "awarded")
	})

	t.Run("service error maps to status code", func(t *testing.T) {
		svc := &mockAchievementService{err: services.NewInternalError("db down")}
		controller := newTestController(svc)

		rec := httptest.NewRecorder()
		controller.Recheck(rec, authenticatedRequest(http.MethodPost, "/api/v1/badges/recheck", 42))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeResponse(t, rec)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		// Internal detail is masked in responses
		assert.NotContains(t, resp.Error.Message, "db down")
	})
}
