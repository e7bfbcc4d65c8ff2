package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/web"
)

// DashboardHandler serves the HTML dashboard with the current stats embedded.
type DashboardHandler struct {
	page       *web.Dashboard
	stats      StatsSource
	appName    string
	textScorer string
	logger     zerolog.Logger
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(page *web.Dashboard, stats StatsSource, appName, textScorer string, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		page:       page,
		stats:      stats,
		appName:    appName,
		textScorer: textScorer,
		logger:     logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the dashboard route.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/", h.index)
}

func (h *DashboardHandler) index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	err := h.page.Render(c.Response().BodyWriter(), web.PageData{
		AppName:    h.appName,
		TextScorer: h.textScorer,
		Stats:      h.stats.Stats(),
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render dashboard")
		return fiber.NewError(fiber.StatusInternalServerError, "dashboard unavailable")
	}
	return nil
}
