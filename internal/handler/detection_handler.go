package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/service"
	"github.com/noah-isme/truthguard-go-api/internal/utils"
)

// DetectionHandler serves the text and image scoring endpoints. Responses are
// the bare verdict on success and {"error": message} with status 500 on any
// failure, which is the shape the dashboard and demo drivers consume.
type DetectionHandler struct {
	service service.DetectionService
	limiter fiber.Handler
	logger  zerolog.Logger
}

// NewDetectionHandler constructs a detection handler. limiter may be nil.
func NewDetectionHandler(service service.DetectionService, limiter fiber.Handler, logger zerolog.Logger) *DetectionHandler {
	return &DetectionHandler{
		service: service,
		limiter: limiter,
		logger:  logger.With().Str("component", "detection_handler").Logger(),
	}
}

// Register binds the detection routes.
func (h *DetectionHandler) Register(router fiber.Router) {
	handlers := func(final fiber.Handler) []fiber.Handler {
		if h.limiter != nil {
			return []fiber.Handler{h.limiter, final}
		}
		return []fiber.Handler{final}
	}

	router.Post("/detect-text", handlers(h.detectText)...)
	router.Post("/detect-image", handlers(h.detectImage)...)
}

func (h *DetectionHandler) detectText(c *fiber.Ctx) error {
	var req dto.DetectTextRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, "invalid request body: "+err.Error(), err)
	}

	verdict, err := h.service.DetectText(requestContext(c), req)
	if err != nil {
		return h.fail(c, err.Error(), err)
	}

	return c.Status(fiber.StatusOK).JSON(verdict)
}

func (h *DetectionHandler) detectImage(c *fiber.Ctx) error {
	var req dto.DetectImageRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, "invalid request body: "+err.Error(), err)
	}

	verdict, err := h.service.DetectImage(requestContext(c), req)
	if err != nil {
		if errors.Is(err, detector.ErrDecodeFailure) {
			return h.fail(c, detector.ErrDecodeFailure.Error(), err)
		}
		return h.fail(c, err.Error(), err)
	}

	return c.Status(fiber.StatusOK).JSON(verdict)
}

func (h *DetectionHandler) fail(c *fiber.Ctx, message string, err error) error {
	logger := requestLogger(h.logger, c)
	event := logger.Warn()
	if !errors.Is(err, detector.ErrInvalidInput) && !errors.Is(err, detector.ErrDecodeFailure) {
		event = logger.Error()
	}
	event.Err(err).Str("path", c.Path()).Msg("detection request failed")

	return utils.SendErrorBody(c, fiber.StatusInternalServerError, message)
}

// RateLimited answers throttled detection requests in the detection error shape.
func RateLimited(c *fiber.Ctx) error {
	return utils.SendErrorBody(c, fiber.StatusTooManyRequests, "rate limit exceeded")
}
