package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/member-directory/internal/api/http/handlers"
	"github.com/spec-kit/member-directory/internal/auth"
	"github.com/spec-kit/member-directory/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Account        *handlers.AccountHandler
	Directory      *handlers.DirectoryHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	authenticated := cfg.AuthMiddleware.Handle

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/verify/:token", cfg.Auth.Verify)
	authGroup.Post("/verify/resend", authenticated, cfg.Auth.ResendVerification)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", authenticated, cfg.Auth.ChangePassword)

	account := app.Group("/account", authenticated)
	account.Get("/me", cfg.Account.Me)
	account.Put("/profile", cfg.Account.UpdateProfile)

	directory := app.Group("/directory")
	directory.Get("/members", cfg.Directory.Members)
	directory.Get("/companies", cfg.Directory.Companies)
	directory.Get("/stats", cfg.Directory.Stats)
	directory.Get("/profiles/:identity", cfg.Directory.Profile)

	admin := app.Group("/admin", authenticated, auth.RequireAdmin())
	admin.Get("/accounts", cfg.Admin.ListAccounts)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/accounts/:identity", cfg.Admin.GetAccount)
	admin.Post("/accounts/:identity/toggle-status", cfg.Admin.ToggleStatus)
	admin.Post("/accounts/:identity/make-admin", cfg.Admin.MakeAdmin)
}
