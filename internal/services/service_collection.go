package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"

	"thetrek/internal/cache"
	"thetrek/internal/config"
	"thetrek/internal/database"
	"thetrek/internal/events"
	"thetrek/internal/repositories"
)

// ServiceCollection wires repositories, infrastructure and services
// together in dependency order.
type ServiceCollection struct {
	// Core services
	AuthService         AuthService
	UserService         UserService
	ActivityService     ActivityService
	AchievementService  AchievementService
	LeaderboardService  LeaderboardService
	CommunityService    CommunityService
	ChampionshipService ChampionshipService
	GoogleFitService    GoogleFitService

	// Infrastructure services
	FileService FileService

	// Repository collection
	Repositories *repositories.Collection

	// Infrastructure components
	Cache      cache.Cache
	EventBus   events.EventBus
	Logger     *zap.Logger
	Config     *config.Config
	DBManager  *database.Manager
	Cloudinary *cloudinary.Cloudinary

	initialized   bool
	cleanupCancel context.CancelFunc
	cleanupDone   chan struct{}
}

// NewServiceCollection creates the full service collection
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
	}

	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	if err := collection.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := collection.subscribeEventHandlers(); err != nil {
		return nil, fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	collection.initialized = true
	logger.Info("service collection initialized")
	return collection, nil
}

func (sc *ServiceCollection) initializeInfrastructure() error {
	cacheConfig := &cache.Config{
		Provider:        sc.Config.Cache.Provider,
		RedisURL:        sc.Config.Cache.RedisURL,
		TTL:             sc.Config.Cache.TTL,
		MaxKeys:         sc.Config.Cache.MaxKeys,
		CleanupInterval: sc.Config.Cache.CleanupInterval,
	}
	c, err := cache.NewCache(cacheConfig, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	sc.EventBus = events.NewInMemoryEventBus(events.DefaultEventBusConfig(), sc.Logger)

	if sc.Config.UploadsEnabled() {
		cld, err := cloudinary.NewFromParams(
			sc.Config.Cloudinary.CloudName,
			sc.Config.Cloudinary.APIKey,
			sc.Config.Cloudinary.APISecret,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize cloudinary: %w", err)
		}
		sc.Cloudinary = cld
	}

	return nil
}

func (sc *ServiceCollection) initializeRepositories() error {
	collection, err := repositories.NewCollection(sc.DBManager, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}
	sc.Repositories = collection
	return nil
}

func (sc *ServiceCollection) initializeServices() error {
	// Infrastructure services first
	if sc.Cloudinary != nil {
		sc.FileService = NewFileService(
			sc.Cloudinary,
			sc.EventBus,
			sc.Logger,
			DefaultFileConfig(),
		)
	}

	sc.AuthService = NewAuthService(
		sc.Repositories.User,
		sc.Repositories.Token,
		sc.EventBus,
		&sc.Config.Auth,
		sc.Logger,
	)

	sc.UserService = NewUserService(
		sc.Repositories.User,
		sc.FileService,
		sc.Logger,
	)

	sc.ActivityService = NewActivityService(
		sc.Repositories.Activity,
		sc.Repositories.User,
		sc.EventBus,
		sc.Logger,
	)

	sc.AchievementService = NewAchievementService(
		sc.Repositories.Badge,
		sc.Repositories.Activity,
		sc.EventBus,
		sc.Logger,
	)

	sc.LeaderboardService = NewLeaderboardService(
		sc.Repositories.Leaderboard,
		sc.Repositories.Community,
		sc.Cache,
		sc.Logger,
	)

	sc.CommunityService = NewCommunityService(sc.Repositories.Community, sc.Logger)
	sc.ChampionshipService = NewChampionshipService(sc.Repositories.Championship, sc.Logger)

	if sc.Config.GoogleFitEnabled() {
		sc.GoogleFitService = NewGoogleFitService(
			sc.Config.GoogleFit,
			sc.Repositories.Token,
			sc.Repositories.Activity,
			sc.Repositories.User,
			sc.Cache,
			sc.EventBus,
			sc.Logger,
		)
	}

	return nil
}

// subscribeEventHandlers wires the asynchronous pipeline. Every created
// activity triggers one badge evaluation pass for its user.
func (sc *ServiceCollection) subscribeEventHandlers() error {
	achievementCheck := events.NewTypedEventHandler(
		"achievement_check",
		func(ctx context.Context, event *events.ActivityCreatedEvent) error {
			userID := event.GetUserID()
			if userID == nil {
				return fmt.Errorf("activity event %s has no user", event.GetEventID())
			}
			_, err := sc.AchievementService.CheckAndAwardBadges(ctx, *userID, event.ActivityID)
			return err
		},
	)
	if err := sc.EventBus.Subscribe(events.EventActivityCreated, achievementCheck); err != nil {
		return fmt.Errorf("failed to subscribe achievement handler: %w", err)
	}

	return nil
}

// Start starts background processing. Must be called before the HTTP
// server accepts traffic.
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if !sc.initialized {
		return fmt.Errorf("service collection not initialized")
	}
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	// Expired refresh tokens are dead rows; sweep them in the
	// background for the lifetime of the process.
	cleanupCtx, cancel := context.WithCancel(context.Background())
	sc.cleanupCancel = cancel
	sc.cleanupDone = make(chan struct{})
	go func() {
		defer close(sc.cleanupDone)
		RunTokenCleanup(cleanupCtx, sc.Repositories.Token, tokenCleanupInterval, sc.Logger)
	}()

	sc.Logger.Info("service collection started")
	return nil
}

// Shutdown stops services in reverse dependency order. The event bus
// drains first so in-flight badge evaluations finish before the
// database closes.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("shutting down service collection")

	if sc.cleanupCancel != nil {
		sc.cleanupCancel()
		<-sc.cleanupDone
	}

	var errs []error
	if err := sc.EventBus.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("event bus stop: %w", err))
	}
	if err := sc.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}
	if err := sc.DBManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	if len(errs) > 0 {
		for _, err := range errs {
			sc.Logger.Error("shutdown error", zap.Error(err))
		}
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}

	sc.Logger.Info("service collection shutdown completed")
	return nil
}

// HealthReport describes the health of the core dependencies.
type HealthReport struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck checks database, cache and event bus connectivity.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]string),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sc.Repositories.HealthCheck(checkCtx); err != nil {
		report.Status = "unhealthy"
		report.Dependencies["database"] = err.Error()
	} else {
		report.Dependencies["database"] = "ok"
	}

	if err := sc.Cache.Health(checkCtx); err != nil {
		if report.Status == "healthy" {
			report.Status = "degraded"
		}
		report.Dependencies["cache"] = err.Error()
	} else {
		report.Dependencies["cache"] = "ok"
	}

	if err := sc.EventBus.Health(); err != nil {
		if report.Status == "healthy" {
			report.Status = "degraded"
		}
		report.Dependencies["events"] = err.Error()
	} else {
		report.Dependencies["events"] = "ok"
	}

	return report
}
