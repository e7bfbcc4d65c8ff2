package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/truthguard-go-api/internal/utils"
)

// Locals keys populated by DeviceAuth.
const (
	LocalDeviceID     = "device_id"
	LocalDeviceScopes = "device_scopes"
)

// DeviceAuth validates HMAC-signed bearer tokens issued to sensor devices.
// The subject claim names the device and the scope claim lists its grants.
func DeviceAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get(fiber.HeaderAuthorization)
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		deviceID, err := claims.GetSubject()
		if err != nil || strings.TrimSpace(deviceID) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}

		c.Locals(LocalDeviceID, strings.TrimSpace(deviceID))
		c.Locals(LocalDeviceScopes, extractScopes(claims))

		return c.Next()
	}
}

// DeviceID returns the verified device identifier bound to the request, if any.
func DeviceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalDeviceID).(string); ok {
		return id
	}
	return ""
}

func extractScopes(claims jwt.MapClaims) []string {
	for _, key := range []string{"scope", "scopes", "scp"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if scopes := normalizeScopes(value); len(scopes) > 0 {
			return scopes
		}
	}
	return nil
}

func normalizeScopes(value interface{}) []string {
	var scopes []string
	switch v := value.(type) {
	case string:
		for _, scope := range strings.Fields(v) {
			scopes = append(scopes, strings.ToLower(scope))
		}
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				scopes = append(scopes, strings.ToLower(strings.TrimSpace(str)))
			}
		}
	}
	return scopes
}
