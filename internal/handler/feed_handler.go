package handler

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/service"
)

// FeedHandler upgrades clients to the live detection and sensor feed.
type FeedHandler struct {
	feed   service.FeedService
	stats  StatsSource
	logger zerolog.Logger
}

// NewFeedHandler constructs a feed handler. New clients first receive a stats event.
func NewFeedHandler(feed service.FeedService, stats StatsSource, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		stats:  stats,
		logger: logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/feed/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/feed/ws", websocket.New(h.handleConnection))
}

func (h *FeedHandler) handleConnection(conn *websocket.Conn) {
	correlation, _ := conn.Locals("correlation_id").(string)

	opts := service.FeedConnectionOptions{CorrelationID: correlation}
	if greeting, err := h.statsEvent(); err == nil {
		opts.Greeting = append(opts.Greeting, greeting)
	} else {
		h.logger.Warn().Err(err).Msg("failed to encode stats greeting")
	}

	h.logger.Info().Str("correlation_id", correlation).Msg("feed websocket connected")
	h.feed.ServeConnection(conn, opts)
	h.logger.Info().Str("correlation_id", correlation).Msg("feed websocket disconnected")
}

func (h *FeedHandler) statsEvent() (dto.FeedEvent, error) {
	payload, err := json.Marshal(h.stats.Stats())
	if err != nil {
		return dto.FeedEvent{}, err
	}
	return dto.FeedEvent{Type: dto.FeedEventStats, Payload: payload, SentAt: time.Now().UTC()}, nil
}
