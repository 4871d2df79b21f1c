package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Groups         *handlers.GroupsHandler
	Tickets        *handlers.TicketsHandler
	Login          *handlers.LoginHandler
	Search         *handlers.SearchHandler
	Upload         *handlers.UploadHandler
	AuthMiddleware *auth.Middleware

	// ExposeInternal additionally registers the raw user command endpoints
	// and the fake login. Never enable on a public deployment.
	ExposeInternal bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	api.Post("/login/telegram", cfg.Login.Telegram)
	if cfg.ExposeInternal {
		api.Post("/fake-login/:id", cfg.Login.Fake)
		api.Put("/users/:id", cfg.Users.Create)
		api.Post("/users/:id", cfg.Users.Update)
		api.Get("/user-identities/:key", cfg.Users.Identity)
	}

	// the blob endpoint authenticates with the signed grant, the file
	// endpoint is public by design
	api.Post("/upload/:id/blob", cfg.Upload.Blob)
	api.Get("/upload/:id/file", cfg.Upload.File)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	protected.Get("/users/me", cfg.Users.Me)
	if cfg.ExposeInternal {
		protected.Get("/users/:id", cfg.Users.Get)
	}
	protected.Get("/users/:id/profile", cfg.Users.Profile)
	protected.Get("/users/:id/groups", cfg.Users.Groups)

	protected.Put("/groups/:id", cfg.Groups.Create)
	protected.Post("/groups/:id", cfg.Groups.Update)
	protected.Get("/groups/:id", cfg.Groups.Get)
	protected.Get("/groups/:id/tickets", cfg.Groups.Tickets)

	protected.Get("/tickets/owned", cfg.Tickets.Owned)
	protected.Get("/tickets/assigned", cfg.Tickets.Assigned)
	protected.Put("/tickets/:id", cfg.Tickets.Create)
	protected.Post("/tickets/:id", cfg.Tickets.Update)
	protected.Get("/tickets/:id", cfg.Tickets.Get)

	protected.Get("/search/:kind", cfg.Search.Search)

	protected.Post("/upload/initiate", cfg.Upload.Initiate)
	protected.Post("/upload/:id/finalize", cfg.Upload.Finalize)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("route")
	})
}
