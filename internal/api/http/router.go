package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/watch-market/internal/api/http/handlers"
	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Listings       *handlers.ListingsHandler
	Moderation     *handlers.ModerationHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	// Listing routes resolve the actor when present; the services decide what anonymous callers may do.
	listings := app.Group("/listings", cfg.AuthMiddleware.Optional)
	listings.Get("", cfg.Listings.ListApproved)
	listings.Post("", cfg.Listings.Create)
	listings.Get("/:id", cfg.Listings.Get)
	listings.Patch("/:id", cfg.Listings.Update)
	listings.Delete("/:id", cfg.Listings.Delete)
	listings.Get("/:id/history", cfg.Listings.History)
	listings.Post("/:id/submit", cfg.Listings.Submit)
	listings.Post("/:id/mark-sold", cfg.Listings.MarkSold)
	listings.Post("/:id/reactivate", cfg.Listings.Reactivate)
	listings.Post("/:id/reports", cfg.Listings.Report)

	me := app.Group("/me", cfg.AuthMiddleware.Handle)
	me.Get("/listings", cfg.Listings.ListMine)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/moderation/pending", cfg.Moderation.Pending)
	admin.Post("/listings/:id/approve", cfg.Moderation.Approve)
	admin.Post("/listings/:id/reject", cfg.Moderation.Reject)
	admin.Post("/listings/:id/archive", cfg.Moderation.Archive)
	admin.Get("/reports", cfg.Moderation.ListReports)
	admin.Post("/reports/:id/close", cfg.Moderation.CloseReport)
}
