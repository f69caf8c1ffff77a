package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/guild-ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Setup          *handlers.SetupHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Auth.Token)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Post("/tickets", cfg.Tickets.Create)
	api.Post("/tickets/:channelID/close", cfg.Tickets.Close)
	api.Post("/tickets/:channelID/reopen", cfg.Tickets.Reopen)
	api.Post("/tickets/:channelID/delete", cfg.Tickets.Delete)
	api.Post("/tickets/:channelID/transcript", cfg.Tickets.Transcript)

	api.Get("/guilds/:guildID/config", cfg.Setup.View)
	api.Put("/guilds/:guildID/config/category", cfg.Setup.SetCategory)
	api.Put("/guilds/:guildID/config/support-role", cfg.Setup.SetSupportRole)
	api.Put("/guilds/:guildID/config/transcript-channel", cfg.Setup.SetTranscriptChannel)
	api.Put("/guilds/:guildID/config/modlog-channel", cfg.Setup.SetModLogChannel)
	api.Post("/guilds/:guildID/panel", cfg.Setup.PublishPanel)
	api.Post("/guilds/:guildID/disable", cfg.Setup.Disable)
}
