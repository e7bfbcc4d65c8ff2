package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// StatsSource exposes the current detection totals.
type StatsSource interface {
	Stats() models.Stats
}

// StatsHandler returns the aggregate detection counters as a bare JSON object.
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// Register binds the stats route.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/stats", h.get)
}

func (h *StatsHandler) get(c *fiber.Ctx) error {
	return c.JSON(h.source.Stats())
}
