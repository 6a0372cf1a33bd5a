package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"thetrek/internal/cache"
	"thetrek/internal/config"
	"thetrek/internal/events"
	"thetrek/internal/models"
	"thetrek/internal/repositories"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// Default REST base for the Fitness API. Overridable for tests.
	googleFitAPIBase = "https://www.googleapis.com/fitness/v1"

	// Lookback window for a first sync. Subsequent syncs re-read a one
	// day overlap so late-arriving sessions are not missed; dedupe on
	// the session id keeps the overlap harmless.
	firstSyncLookback = 30 * 24 * time.Hour
	syncOverlap       = 24 * time.Hour

	stateKeyPrefix = "googlefit:state:"
)

var googleFitScopes = []string{
	"https://www.googleapis.com/auth/fitness.activity.read",
	"https://www.googleapis.com/auth/fitness.location.read",
}

// Google Fit activity type codes, mapped to our activity types.
// Anything unmapped is skipped on import.
var googleActivityTypes = map[int]string{
	1:  "cycle",
	7:  "walk",
	8:  "run",
	35: "hike",
	82: "swim",
}

// SyncResult summarizes a single Google Fit import run.
type SyncResult struct {
	Imported     int       `json:"imported"`
	Skipped      int       `json:"skipped"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// ConnectionStatus reports whether a user has Google Fit linked.
type ConnectionStatus struct {
	Connected    bool       `json:"connected"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// GoogleFitService handles the OAuth linking flow and activity imports.
type GoogleFitService interface {
	ConnectURL(ctx context.Context, userID int64) (string, error)
	HandleCallback(ctx context.Context, state, code string) (int64, error)
	Sync(ctx context.Context, userID int64) (*SyncResult, error)
	Disconnect(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*ConnectionStatus, error)
}

type googleFitService struct {
	oauthConfig  *oauth2.Config
	stateTTL     time.Duration
	apiBase      string
	tokenRepo    repositories.TokenRepository
	activityRepo repositories.ActivityRepository
	userRepo     repositories.UserRepository
	cache        cache.Cache
	eventBus     events.EventBus
	logger       *zap.Logger
}

// NewGoogleFitService creates a Google Fit integration service.
func NewGoogleFitService(
	cfg config.GoogleFitConfig,
	tokenRepo repositories.TokenRepository,
	activityRepo repositories.ActivityRepository,
	userRepo repositories.UserRepository,
	cacheProvider cache.Cache,
	eventBus events.EventBus,
	logger *zap.Logger,
) GoogleFitService {
	return &googleFitService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       googleFitScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
		stateTTL:     cfg.StateTTL,
		apiBase:      googleFitAPIBase,
		tokenRepo:    tokenRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		cache:        cacheProvider,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// ConnectURL generates a single-use state token and returns the Google
// consent URL the client should redirect to.
func (s *googleFitService) ConnectURL(ctx context.Context, userID int64) (string, error) {
	stateID, err := uuid.NewV4()
	if err != nil {
		return "", NewInternalError("failed to generate state token")
	}
	state := stateID.String()

	if err := s.cache.Set(ctx, stateKeyPrefix+state, userID, s.stateTTL); err != nil {
		return "", NewInternalError("failed to store state token")
	}

	// Offline access so Google returns a refresh token; consent prompt
	// forces one even when the user previously authorized.
	authURL := s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return authURL, nil
}

// HandleCallback consumes the state token, exchanges the authorization
// code and stores the user's credentials. Returns the linked user ID.
func (s *googleFitService) HandleCallback(ctx context.Context, state, code string) (int64, error) {
	if state == "" || code == "" {
		return 0, NewValidationError("state and code are required", nil)
	}

	value, found := s.cache.GetDelete(ctx, stateKeyPrefix+state)
	if !found {
		return 0, NewUnauthorizedError("invalid or expired state token")
	}
	userID, err := toInt64(value)
	if err != nil {
		return 0, NewInternalError("corrupt state token value")
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return 0, NewUnauthorizedError("authorization code exchange failed")
	}

	record := &models.GoogleFitToken{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.tokenRepo.UpsertGoogleFitToken(ctx, record); err != nil {
		return 0, NewInternalError("failed to store credentials")
	}

	s.logger.Info("google fit account linked", zap.Int64("user_id", userID))
	return userID, nil
}

// Sync imports activity sessions recorded since the last sync. Sessions
// already imported are skipped by their session id.
func (s *googleFitService) Sync(ctx context.Context, userID int64) (*SyncResult, error) {
	stored, err := s.tokenRepo.GetGoogleFitToken(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load credentials")
	}
	if stored == nil {
		return nil, NewBusinessError("google fit is not connected", "NOT_CONNECTED")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, EntityNotFoundError("user", userID)
	}

	client := s.apiClient(ctx, stored)

	now := time.Now().UTC()
	since := now.Add(-firstSyncLookback)
	if stored.LastSyncedAt != nil {
		since = stored.LastSyncedAt.Add(-syncOverlap)
	}

	sessions, err := s.fetchSessions(ctx, client, since, now)
	if err != nil {
		return nil, err
	}

	distances, err := s.fetchSessionDistances(ctx, client, since, now)
	if err != nil {
		return nil, err
	}

	weight := defaultWeightKG
	if user.WeightKG != nil {
		weight = *user.WeightKG
	}

	result := &SyncResult{LastSyncedAt: now}
	for _, session := range sessions {
		imported, err := s.importSession(ctx, userID, weight, session, distances[session.ID])
		if err != nil {
			s.logger.Warn("failed to import session",
				zap.String("session_id", session.ID),
				zap.Error(err))
			result.Skipped++
			continue
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	if err := s.tokenRepo.UpdateGoogleFitSyncTime(ctx, userID, now); err != nil {
		s.logger.Warn("failed to record sync time", zap.Int64("user_id", userID), zap.Error(err))
	}

	if err := s.eventBus.PublishAsync(ctx, events.NewGoogleFitSyncedEvent(userID, result.Imported, result.Skipped)); err != nil {
		s.logger.Warn("failed to publish sync event", zap.Error(err))
	}

	s.logger.Info("google fit sync completed",
		zap.Int64("user_id", userID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// Disconnect removes the stored credentials. Imported activities are kept.
func (s *googleFitService) Disconnect(ctx context.Context, userID int64) error {
	if err := s.tokenRepo.DeleteGoogleFitToken(ctx, userID); err != nil {
		return NewInternalError("failed to remove credentials")
	}
	s.logger.Info("google fit account unlinked", zap.Int64("user_id", userID))
	return nil
}

func (s *googleFitService) Status(ctx context.Context, userID int64) (*ConnectionStatus, error) {
	stored, err := s.tokenRepo.GetGoogleFitToken(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to load credentials")
	}
	if stored == nil {
		return &ConnectionStatus{Connected: false}, nil
	}
	return &ConnectionStatus{Connected: true, LastSyncedAt: stored.LastSyncedAt}, nil
}

// apiClient builds an HTTP client whose token source refreshes expired
// access tokens and persists new ones back to the database.
func (s *googleFitService) apiClient(ctx context.Context, stored *models.GoogleFitToken) *http.Client {
	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
		TokenType:    "Bearer",
	}
	source := &persistingTokenSource{
		config: s.oauthConfig,
		token:  token,
		onRefresh: func(refreshed *oauth2.Token) error {
			return s.tokenRepo.UpsertGoogleFitToken(ctx, &models.GoogleFitToken{
				UserID:       stored.UserID,
				AccessToken:  refreshed.AccessToken,
				RefreshToken: refreshed.RefreshToken,
				Expiry:       refreshed.Expiry,
			})
		},
	}
	return oauth2.NewClient(ctx, source)
}

// persistingTokenSource wraps the standard refresh flow and calls
// onRefresh whenever a new token is obtained, so refreshed credentials
// survive the process.
type persistingTokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	// 60s buffer so a token never expires mid-request.
	if time.Until(ts.token.Expiry) > 60*time.Second {
		return ts.token, nil
	}

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}
	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, err
		}
	}
	ts.token = newToken
	return newToken, nil
}

// fitSession is a single session from the Fitness sessions endpoint.
// Google returns the millisecond timestamps as strings.
type fitSession struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ActivityType    int    `json:"activityType"`
	StartTimeMillis string `json:"startTimeMillis"`
	EndTimeMillis   string `json:"endTimeMillis"`
}

func (s *googleFitService) fetchSessions(ctx context.Context, client *http.Client, since, until time.Time) ([]fitSession, error) {
	endpoint := fmt.Sprintf("%s/users/me/sessions?startTime=%s&endTime=%s",
		s.apiBase,
		url.QueryEscape(since.Format(time.RFC3339)),
		url.QueryEscape(until.Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewInternalError("failed to build sessions request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewServiceUnavailableError("google fit is unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, NewUnauthorizedError("google fit authorization was revoked")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("sessions request failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, NewInternalError("failed to fetch sessions")
	}

	var payload struct {
		Session []fitSession `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewInternalError("failed to decode sessions response")
	}
	return payload.Session, nil
}

// fetchSessionDistances aggregates distance deltas bucketed by session
// and returns meters per session id.
func (s *googleFitService) fetchSessionDistances(ctx context.Context, client *http.Client, since, until time.Time) (map[string]float64, error) {
	request := map[string]interface{}{
		"aggregateBy": []map[string]string{
			{"dataTypeName": "com.google.distance.delta"},
		},
		"bucketBySession": map[string]int{"minDurationMillis": 60000},
		"startTimeMillis": since.UnixMilli(),
		"endTimeMillis":   until.UnixMilli(),
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, NewInternalError("failed to encode aggregate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiBase+"/users/me/dataset:aggregate", bytes.NewReader(body))
	if err != nil {
		return nil, NewInternalError("failed to build aggregate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewServiceUnavailableError("google fit is unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Distance is best effort. Sessions without a distance bucket
		// import with zero distance and are skipped by validation.
		s.logger.Warn("distance aggregate request failed", zap.Int("status", resp.StatusCode))
		return map[string]float64{}, nil
	}

	var payload struct {
		Bucket []struct {
			Session *struct {
				ID string `json:"id"`
			} `json:"session"`
			Dataset []struct {
				Point []struct {
					Value []struct {
						FpVal float64 `json:"fpVal"`
					} `json:"value"`
				} `json:"point"`
			} `json:"dataset"`
		} `json:"bucket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewInternalError("failed to decode aggregate response")
	}

	distances := make(map[string]float64, len(payload.Bucket))
	for _, bucket := range payload.Bucket {
		if bucket.Session == nil {
			continue
		}
		var meters float64
		for _, dataset := range bucket.Dataset {
			for _, point := range dataset.Point {
				for _, value := range point.Value {
					meters += value.FpVal
				}
			}
		}
		distances[bucket.Session.ID] = meters
	}
	return distances, nil
}

// importSession converts one session into an activity. Returns false
// without error when the session is skipped (unmapped type, too short,
// or already imported).
func (s *googleFitService) importSession(ctx context.Context, userID int64, weightKG float64, session fitSession, distanceMeters float64) (bool, error) {
	activityType, ok := googleActivityTypes[session.ActivityType]
	if !ok {
		return false, nil
	}

	startMillis, err := strconv.ParseInt(session.StartTimeMillis, 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad start time %q: %w", session.StartTimeMillis, err)
	}
	endMillis, err := strconv.ParseInt(session.EndTimeMillis, 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad end time %q: %w", session.EndTimeMillis, err)
	}

	durationMin := int((endMillis - startMillis) / 60000)
	distanceKM := distanceMeters / 1000

	// Sub-minute or unmeasured sessions are not worth recording.
	if durationMin < 1 || distanceKM <= 0 {
		return false, nil
	}

	exists, err := s.activityRepo.ExistsByExternalID(ctx, userID, session.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	externalID := session.ID
	activity := &models.Activity{
		UserID:         userID,
		Type:           activityType,
		DistanceKM:     distanceKM,
		DurationMin:    durationMin,
		ActivityDate:   time.UnixMilli(startMillis).UTC(),
		CaloriesBurned: EstimateCalories(activityType, durationMin, weightKG),
		Source:         models.SourceGoogleFit,
		ExternalID:     &externalID,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return false, err
	}

	if err := s.eventBus.PublishAsync(ctx, events.NewActivityCreatedEvent(
		activity.ID, userID, activity.Type,
		activity.DistanceKM, float64(activity.DurationMin),
		activity.ActivityDate, activity.Source,
	)); err != nil {
		s.logger.Warn("failed to publish activity event",
			zap.Int64("activity_id", activity.ID), zap.Error(err))
	}
	return true, nil
}

// toInt64 normalizes cached state values. The memory cache stores the
// int64 as-is while the Redis cache round-trips through JSON numbers.
func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected state value type %T", value)
	}
}
