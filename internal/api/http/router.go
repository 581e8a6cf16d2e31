package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-central/internal/api/http/handlers"
	"github.com/spec-kit/tracker-central/internal/auth"
	"github.com/spec-kit/tracker-central/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health             *handlers.HealthHandler
	Templates          *handlers.TemplatesHandler
	Sessions           *handlers.SessionsHandler
	Trackers           *handlers.TrackersHandler
	Drafts             *handlers.DraftsHandler
	AuthMiddleware     *auth.AuthMiddleware
	Metrics            *observability.Metrics
	HelpdeskConfigured bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Handler())

	api := app.Group("/api/v1")

	api.Get("/templates", cfg.Templates.List)
	api.Get("/templates/:key", cfg.Templates.Get)
	api.Post("/templates/:key/preview", cfg.Templates.Preview)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	sessions := protected.Group("/sessions")
	sessions.Post("", cfg.Sessions.Open)
	sessions.Get("/:id", cfg.Sessions.Get)
	sessions.Patch("/:id/fields/:field", cfg.Sessions.SetField)
	sessions.Post("/:id/mount/:field", cfg.Sessions.Mount)
	sessions.Delete("/:id", cfg.Sessions.Close)

	helpdesk := requireHelpdesk(cfg.HelpdeskConfigured)
	protected.Post("/trackers", helpdesk, cfg.Trackers.Create)
	protected.Get("/tickets/:id/associations", helpdesk, cfg.Trackers.Associations)

	drafts := protected.Group("/drafts")
	drafts.Get("", cfg.Drafts.List)
	drafts.Post("", cfg.Drafts.Create)
	drafts.Get("/:id", cfg.Drafts.Get)
	drafts.Put("/:id", cfg.Drafts.Update)
	drafts.Delete("/:id", cfg.Drafts.Delete)
}
