package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subs2srs/backend/internal/api/handlers"
	"github.com/subs2srs/backend/internal/api/middleware"
	"github.com/subs2srs/backend/internal/auth"
	"github.com/subs2srs/backend/internal/config"
	"github.com/subs2srs/backend/internal/db"
	"github.com/subs2srs/backend/internal/job"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, registry *job.Registry, runner handlers.Runner) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	jobsHandler := handlers.NewJobsHandler(registry, runner)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		// Auth (public, rate limited against credential stuffing)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(4<<10)).
			Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.MaxBodySize(64 << 10))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Jobs
			r.Post("/jobs", jobsHandler.Create)
			r.Get("/jobs", jobsHandler.List)
			r.Get("/jobs/{id}", jobsHandler.Get)
			r.Get("/jobs/{id}/preview", jobsHandler.Preview)
			r.Get("/jobs/{id}/download", jobsHandler.Download)
			r.Delete("/jobs/{id}", jobsHandler.Delete)
		})
	})

	return r
}
