package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"thetrek/internal/handlers/api/v1/activities"
	"thetrek/internal/handlers/api/v1/auth"
	"thetrek/internal/handlers/api/v1/badges"
	"thetrek/internal/handlers/api/v1/championships"
	"thetrek/internal/handlers/api/v1/communities"
	"thetrek/internal/handlers/api/v1/googlefit"
	"thetrek/internal/handlers/api/v1/leaderboard"
	"thetrek/internal/handlers/api/v1/users"
	"thetrek/internal/middleware"
	"thetrek/internal/response"
	"thetrek/internal/services"
)

// New builds the chi router with the full middleware chain and all
// API v1 routes.
func New(collection *services.ServiceCollection, logger *zap.Logger) http.Handler {
	builder := response.NewBuilder(response.DefaultConfig(), logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(builder, logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimit(collection.Cache, middleware.DefaultRateLimiterConfig(), builder, logger))

	requireAuth := middleware.RequireAuth(collection.AuthService, builder, logger)
	optionalAuth := middleware.OptionalAuth(collection.AuthService)
	authLimit := middleware.RateLimit(collection.Cache, middleware.AuthRateLimiterConfig(), builder, logger)

	authController := auth.NewController(collection.AuthService, builder, logger)
	userController := users.NewController(collection.UserService, builder, logger)
	activityController := activities.NewController(collection.ActivityService, builder, logger)
	badgeController := badges.NewController(collection.AchievementService, builder, logger)
	leaderboardController := leaderboard.NewController(collection.LeaderboardService, builder, logger)
	communityController := communities.NewController(collection.CommunityService, collection.LeaderboardService, builder, logger)
	championshipController := championships.NewController(collection.ChampionshipService, builder, logger)

	r.Get("/health", healthHandler(collection, builder))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", authController.Register)
			r.Post("/login", authController.Login)
			r.Post("/refresh", authController.Refresh)
			r.Post("/logout", authController.Logout)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userController.GetMe)
			r.Patch("/", userController.UpdateMe)
			r.Post("/avatar", userController.UploadAvatar)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", activityController.Create)
			r.Get("/", activityController.List)
			r.Get("/stats", activityController.Stats)
			r.Get("/{id}", activityController.Get)
			r.Delete("/{id}", activityController.Delete)
		})

		r.Route("/badges", func(r chi.Router) {
			r.Get("/", badgeController.Catalog)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/earned", badgeController.Earned)
				r.Get("/progress", badgeController.Progress)
				r.Post("/recheck", badgeController.Recheck)
			})
		})

		r.With(optionalAuth).Get("/leaderboard", leaderboardController.Global)

		r.Route("/communities", func(r chi.Router) {
			r.With(optionalAuth).Get("/", communityController.List)
			r.With(optionalAuth).Get("/{id}", communityController.Get)
			r.With(optionalAuth).Get("/{id}/leaderboard", communityController.Leaderboard)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", communityController.Create)
				r.Post("/{id}/join", communityController.Join)
				r.Post("/{id}/leave", communityController.Leave)
			})
		})

		r.Route("/championships", func(r chi.Router) {
			r.Get("/", championshipController.List)
			r.Get("/{id}/standings", championshipController.Standings)
			r.With(requireAuth).Post("/", championshipController.Create)
		})

		if collection.GoogleFitService != nil {
			googleFitController := googlefit.NewController(collection.GoogleFitService, builder, logger)
			r.Route("/googlefit", func(r chi.Router) {
				// The callback is hit by Google's redirect; the user
				// is identified by the state parameter, not a token.
				r.Get("/callback", googleFitController.Callback)
				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Post("/connect", googleFitController.Connect)
					r.Post("/sync", googleFitController.Sync)
					r.Get("/status", googleFitController.Status)
					r.Delete("/", googleFitController.Disconnect)
				})
			})
		}
	})

	return r
}

// healthHandler reports dependency health. Degraded states still
// return 200 so load balancers only evict on hard failures.
func healthHandler(collection *services.ServiceCollection, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := collection.HealthCheck(r.Context())
		status := http.StatusOK
		if report.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		builder.WriteJSON(w, r, builder.Success(r.Context(), report), status)
	}
}
