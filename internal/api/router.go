package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skridlevsky/gavel/internal/archive"
	"github.com/skridlevsky/gavel/internal/tally"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Store        *tally.Store
	Cache        *tally.RecordCache
	Archive      *archive.Archive // may be nil; disables history endpoints
	Database     interface{ Health(context.Context) error }
	BadgeBaseURL string
}

// RouterResult holds the router and resources that need cleanup
type RouterResult struct {
	Router       *chi.Mux
	RateLimiters *RateLimiters
}

// NewRouter creates and configures the HTTP router.
// Caller must call result.RateLimiters.Stop() on shutdown.
func NewRouter(cfg *RouterConfig) *RouterResult {
	r := chi.NewRouter()

	rateLimiters := NewRateLimiters()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)
	r.Use(rateLimiters.Global.Middleware)

	// Health endpoint
	if cfg.Database != nil {
		r.Get("/api/health", NewHealthHandler(cfg.Database))
	} else {
		r.Get("/api/health", HealthHandler)
	}

	votesHandler := NewVotesHandler(cfg.Store, cfg.Cache, cfg.Archive, cfg.BadgeBaseURL)
	r.Route("/api/votes", func(r chi.Router) {
		r.Get("/", votesHandler.List)
		r.Get("/{owner}/{repo}/{number}", votesHandler.Get)
		r.Get("/{owner}/{repo}/{number}/badge", votesHandler.Badge)

		if cfg.Archive != nil {
			// History reads hit Postgres: strict rate limit plus a
			// global concurrency cap.
			r.With(HistoryGuardMiddleware(rateLimiters.History)).
				Get("/{owner}/{repo}/{number}/history", votesHandler.History)
		}
	})

	return &RouterResult{
		Router:       r,
		RateLimiters: rateLimiters,
	}
}
