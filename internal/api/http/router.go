package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-manager/internal/api/http/handlers"
	"github.com/spec-kit/ticket-manager/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	api.Post("/auth/login", cfg.Auth.Login)
	api.Get("/auth/profile", cfg.AuthMiddleware.Handle, cfg.Auth.Profile)

	// Listing and ticket intake are public: customers have no accounts.
	api.Get("/categories", cfg.Categories.List)
	api.Post("/categories", cfg.AuthMiddleware.Handle, auth.RequireSuperadmin(), cfg.Categories.Create)
	api.Put("/categories/:id/deactivate", cfg.AuthMiddleware.Handle, auth.RequireSuperadmin(), cfg.Categories.Deactivate)

	api.Post("/tickets", cfg.Tickets.Create)
	api.Get("/tickets", cfg.AuthMiddleware.Handle, cfg.Tickets.List)
	api.Get("/tickets/:id", cfg.AuthMiddleware.Handle, cfg.Tickets.Get)
	api.Put("/tickets/:id", cfg.AuthMiddleware.Handle, cfg.Tickets.Update)
	api.Post("/tickets/:id/comments", cfg.AuthMiddleware.Handle, cfg.Tickets.AddComment)

	api.Get("/dashboard", cfg.AuthMiddleware.Handle, cfg.Dashboard.Stats)
}
