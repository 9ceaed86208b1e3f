package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tr4ction-console/internal/api/http/handlers"
	"github.com/spec-kit/tr4ction-console/internal/auth"
	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Founder        *handlers.FounderHandler
	Chat           *handlers.ChatHandler
	Admin          *handlers.AdminHandler
	Knowledge      *handlers.KnowledgeHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	app.Post("/chat", cfg.AuthMiddleware.Handle, cfg.Chat.Ask)

	founder := app.Group("/founder", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleFounder, domain.RoleAdmin))
	founder.Get("/trails", cfg.Founder.Trails)
	founder.Get("/trails/:trail/steps/:step/schema", cfg.Founder.StepSchema)
	founder.Get("/trails/:trail/steps/:step/progress", cfg.Founder.GetProgress)
	founder.Post("/trails/:trail/steps/:step/progress", cfg.Founder.SaveProgress)
	founder.Get("/trails/:trail/export/xlsx", cfg.Founder.Export)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/trails", cfg.Admin.Trails)
	admin.Put("/trails/:trail/steps/:step/schema", cfg.Admin.UpdateSchema)
	admin.Get("/founders/progress", cfg.Admin.FoundersProgress)
	admin.Post("/founders/:user/steps/:step/unlock", cfg.Admin.UnlockStep)

	admin.Get("/knowledge/documents", cfg.Knowledge.List)
	admin.Post("/knowledge/upload", cfg.Knowledge.Upload)
	admin.Delete("/knowledge/documents/:id", cfg.Knowledge.Delete)
	admin.Post("/knowledge/reindex/:id", cfg.Knowledge.Reindex)
	admin.Post("/knowledge/reindex-all", cfg.Knowledge.ReindexAll)
}
