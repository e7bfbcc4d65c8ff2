package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/utils"
)

const detectionPathPrefix = "/api/detect-"

// ErrorHandler renders errors that escape route handlers, including requests
// fiber rejects before routing such as bodies over the configured limit.
// Detection routes keep their bare {"error"} shape; other API routes get the envelope.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	base := logger.With().Str("component", "error_handler").Logger()

	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		if status >= fiber.StatusInternalServerError {
			requestLogger(base, c).Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
		}

		path := c.Path()
		switch {
		case strings.HasPrefix(path, detectionPathPrefix):
			return utils.SendErrorBody(c, status, err.Error())
		case strings.HasPrefix(path, "/api/"):
			return utils.SendError(c, status, err.Error())
		default:
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.Status(status).SendString(err.Error())
		}
	}
}
