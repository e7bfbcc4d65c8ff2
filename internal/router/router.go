package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/truthguard-go-api/internal/config"
	"github.com/noah-isme/truthguard-go-api/internal/handler"
	"github.com/noah-isme/truthguard-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DetectionHandler *handler.DetectionHandler
	StatsHandler     *handler.StatsHandler
	SensorHandler    *handler.SensorHandler
	FeedHandler      *handler.FeedHandler
	DashboardHandler *handler.DashboardHandler
	DependencyChecks map[string]handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get(observability.MetricsPath, observability.MetricsHandler())

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(app)
	}

	// Versioned group for health & headers
	v1 := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	v1.Get("/health", handler.HealthCheck(cfg, deps.DependencyChecks))

	// Detection, stats, sensors and the live feed sit directly under /api.
	api := app.Group("/api")

	if deps.DetectionHandler != nil {
		deps.DetectionHandler.Register(api)
	}
	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api)
	}
	if deps.SensorHandler != nil {
		deps.SensorHandler.Register(api)
	}
	if deps.FeedHandler != nil {
		deps.FeedHandler.Register(api)
	}
}
