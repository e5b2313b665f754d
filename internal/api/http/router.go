package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Hello          *handlers.HelloHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. The authentication middleware runs
// on every request; anonymous routes simply carry no authorization
// gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.AuthMiddleware.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	hello := app.Group("/hello")
	hello.Get("/user", auth.RequireAuthorities(domain.AuthorityUser), cfg.Hello.User)
	hello.Get("/admin", auth.RequireAuthorities(domain.AuthorityAdmin), cfg.Hello.Admin)

	admin := app.Group("/admin", auth.RequireAuthorities(domain.AuthorityAdmin))
	admin.Get("/audit", cfg.Audit.List)
}
