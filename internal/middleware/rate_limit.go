package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-client limiter. Clients are keyed by device id when a
// device token was verified upstream, otherwise by remote IP.
func RateLimit(identifier string, max int, window time.Duration, onLimit fiber.Handler) fiber.Handler {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	cfg := limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			client := c.IP()
			if deviceID, ok := c.Locals(LocalDeviceID).(string); ok && deviceID != "" {
				client = deviceID
			}
			return fmt.Sprintf("%s:%s", identifier, client)
		},
	}
	if onLimit != nil {
		cfg.LimitReached = onLimit
	}

	return limiter.New(cfg)
}
