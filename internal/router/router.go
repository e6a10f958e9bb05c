package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/hwplan-api/internal/config"
	"github.com/noah-isme/hwplan-api/internal/handler"
	"github.com/noah-isme/hwplan-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ItemHandler           *handler.ItemHandler
	CalendarHandler       *handler.CalendarHandler
	SettingsHandler       *handler.SettingsHandler
	ScheduleStreamHandler *handler.ScheduleStreamHandler
	JWTMiddleware         fiber.Handler
	WriteRateLimiter      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	var writeGuards []fiber.Handler
	if deps.WriteRateLimiter != nil {
		writeGuards = append(writeGuards, deps.WriteRateLimiter)
	}

	if deps.ItemHandler != nil {
		deps.ItemHandler.Register(api.Group("/items", jwtMiddleware), writeGuards...)
	}

	if deps.CalendarHandler != nil {
		deps.CalendarHandler.Register(api.Group("/calendar", jwtMiddleware))
	}

	if deps.SettingsHandler != nil {
		deps.SettingsHandler.Register(api.Group("/settings", jwtMiddleware))
	}

	if deps.ScheduleStreamHandler != nil {
		deps.ScheduleStreamHandler.Register(api.Group("/schedule", jwtMiddleware))
	}
}
