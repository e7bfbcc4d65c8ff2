package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/truthguard-go-api/internal/utils"
)

// Scopes granted to sensor device tokens.
const (
	ScopeSensorsWrite = "sensors:write"
	ScopeSensorsRead  = "sensors:read"
)

// RequireScope ensures the verified device token carries one of the allowed scopes.
func RequireScope(scopes ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		normalized := strings.ToLower(strings.TrimSpace(scope))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals(LocalDeviceScopes).([]string)
		for _, scope := range granted {
			if _, ok := allowed[scope]; ok {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient scope")
	}
}
