package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/middleware"
	"github.com/noah-isme/truthguard-go-api/internal/service"
	"github.com/noah-isme/truthguard-go-api/internal/utils"
)

// HeaderDeviceID names the sending device when device tokens are not enforced.
const HeaderDeviceID = "X-Device-ID"

// SensorHandler exposes sensor ingestion and listing.
type SensorHandler struct {
	service service.SensorService
	guards  []fiber.Handler
	logger  zerolog.Logger
}

// NewSensorHandler constructs a sensor handler. guards run before ingestion, typically
// device token verification and a scope check.
func NewSensorHandler(service service.SensorService, logger zerolog.Logger, guards ...fiber.Handler) *SensorHandler {
	return &SensorHandler{
		service: service,
		guards:  guards,
		logger:  logger.With().Str("component", "sensor_handler").Logger(),
	}
}

// Register binds the sensor routes.
func (h *SensorHandler) Register(router fiber.Router) {
	ingest := append(append([]fiber.Handler{}, h.guards...), h.ingest)
	router.Post("/sensor-data", ingest...)
	router.Get("/sensor-data", h.list)
	router.Get("/sensor-data/summary", h.summary)
}

func (h *SensorHandler) ingest(c *fiber.Ctx) error {
	var req dto.SensorReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	deviceID := middleware.DeviceID(c)
	if deviceID == "" {
		deviceID = strings.TrimSpace(c.Get(HeaderDeviceID))
	}

	reading, err := h.service.Ingest(requestContext(c), deviceID, req)
	if err != nil {
		return h.handleError(c, err, "failed to store sensor reading")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "sensor reading stored", reading)
}

func (h *SensorHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	readings, err := h.service.List(requestContext(c), dto.SensorReadingQuery{
		SensorType: c.Query("sensor_type"),
		Limit:      limit,
	})
	if err != nil {
		return h.handleError(c, err, "failed to list sensor readings")
	}

	return utils.SendSuccess(c, "sensor readings", readings)
}

func (h *SensorHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(requestContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to summarise sensor readings")
	}

	return utils.SendSuccess(c, "sensor summary", summary)
}

func (h *SensorHandler) handleError(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, service.ErrSensorValidation) || isValidationError(err) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	requestLogger(h.logger, c).Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
