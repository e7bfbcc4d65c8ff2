package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "device-secret"

func signDeviceToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func deviceApp() *fiber.App {
	app := fiber.New()
	app.Post("/ingest", DeviceAuth(testSecret), RequireScope(ScopeSensorsWrite), func(c *fiber.Ctx) error {
		return c.SendString(DeviceID(c))
	})
	return app
}

func TestDeviceAuthAcceptsValidToken(t *testing.T) {
	token := signDeviceToken(t, testSecret, jwt.MapClaims{
		"sub":   "sensor-env-01",
		"scope": "sensors:write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := deviceApp().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDeviceAuthAcceptsScopeArray(t *testing.T) {
	token := signDeviceToken(t, testSecret, jwt.MapClaims{
		"sub":    "sensor-bio-01",
		"scopes": []string{"Sensors:Write"},
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "bearer "+token)
	resp, err := deviceApp().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDeviceAuthRejections(t *testing.T) {
	expired := signDeviceToken(t, testSecret, jwt.MapClaims{
		"sub": "sensor", "scope": "sensors:write", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	wrongSecret := signDeviceToken(t, "other", jwt.MapClaims{"sub": "sensor", "scope": "sensors:write"})
	noSubject := signDeviceToken(t, testSecret, jwt.MapClaims{"scope": "sensors:write"})
	readOnly := signDeviceToken(t, testSecret, jwt.MapClaims{"sub": "sensor", "scope": "sensors:read"})

	cases := map[string]struct {
		header string
		status int
	}{
		"missing header": {"", fiber.StatusUnauthorized},
		"basic scheme":   {"Basic abc", fiber.StatusUnauthorized},
		"empty bearer":   {"Bearer ", fiber.StatusUnauthorized},
		"expired":        {"Bearer " + expired, fiber.StatusUnauthorized},
		"wrong secret":   {"Bearer " + wrongSecret, fiber.StatusUnauthorized},
		"no subject":     {"Bearer " + noSubject, fiber.StatusUnauthorized},
		"read only":      {"Bearer " + readOnly, fiber.StatusForbidden},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := deviceApp().Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRateLimitKeysByClient(t *testing.T) {
	app := fiber.New()
	app.Post("/detect", RateLimit("detect", 2, time.Minute, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/detect", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/detect", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
