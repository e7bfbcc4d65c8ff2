package demo

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// fakeServer answers the API routes the demo uses and remembers sensor posts.
type fakeServer struct {
	mu        sync.Mutex
	detected  int
	sensors   []dto.SensorReadingRequest
	devices   []string
	tokens    []string
	failText  bool
	anomalies []string
}

func (s *fakeServer) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/api/stats", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(models.Stats{
			TotalDetections: int64(s.detected),
			AIDetected:      int64(s.detected),
			AccuracyRate:    "92%",
		})
	})
	app.Post("/api/detect-text", func(c *fiber.Ctx) error {
		if s.failText {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "text field is required"})
		}
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		s.mu.Lock()
		s.detected++
		s.mu.Unlock()
		return c.JSON(models.NewVerdict(0.9, "formal register", map[string]interface{}{"word_count": len(strings.Fields(body["text"]))}, "advanced_nlp", time.Now()))
	})
	app.Post("/api/detect-image", func(c *fiber.Ctx) error {
		var body map[string]string
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		if !strings.HasPrefix(body["image"], "data:image/jpeg;base64,") {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invalid image data"})
		}
		s.mu.Lock()
		s.detected++
		s.mu.Unlock()
		return c.JSON(models.NewVerdict(0.2, "natural lighting", map[string]interface{}{"faces_detected": 1}, "computer_vision", time.Now()))
	})
	app.Post("/api/sensor-data", func(c *fiber.Ctx) error {
		var reading dto.SensorReadingRequest
		if err := c.BodyParser(&reading); err != nil {
			return err
		}
		s.mu.Lock()
		s.sensors = append(s.sensors, reading)
		s.devices = append(s.devices, c.Get("X-Device-ID"))
		s.tokens = append(s.tokens, strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
		id := uint(len(s.sensors))
		anomalies := s.anomalies
		s.mu.Unlock()
		if anomalies == nil {
			anomalies = []string{}
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "sensor reading stored",
			"data": dto.SensorReadingResponse{
				ID:         id,
				SensorType: reading.SensorType,
				DeviceID:   c.Get("X-Device-ID"),
				Data:       reading.Data,
				Anomalies:  anomalies,
			},
		})
	})

	return app
}

func (s *fakeServer) readings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sensors)
}

func startFiberServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()

	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return "http://" + ln.Addr().String()
}

func TestClientDetectTextAndStats(t *testing.T) {
	server := &fakeServer{}
	client := NewClient(startFiberServer(t, server.app()) + "/")

	verdict, err := client.DetectText(context.Background(), AITextSample)
	require.NoError(t, err)
	assert.True(t, verdict.IsAIGenerated)
	assert.Equal(t, "advanced_nlp", verdict.AnalysisType)
	assert.EqualValues(t, 38, verdict.Metadata["word_count"])

	snapshot, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.TotalDetections)
	assert.Equal(t, "92%", snapshot.AccuracyRate)
}

func TestClientReturnsAPIError(t *testing.T) {
	server := &fakeServer{failText: true}
	client := NewClient(startFiberServer(t, server.app()))

	_, err := client.DetectText(context.Background(), "anything")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fiber.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "text field is required", apiErr.Message)
}

func TestClientSignsSensorPosts(t *testing.T) {
	server := &fakeServer{anomalies: []string{"biometric_stress"}}
	client := NewClient(startFiberServer(t, server.app()), WithDeviceSecret("device-secret"))

	stored, err := client.SendSensorData(context.Background(), "bio-07", dto.SensorReadingRequest{
		SensorType: models.SensorBiometric,
		Data:       map[string]interface{}{"stress_level": 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), stored.ID)
	assert.Equal(t, "bio-07", stored.DeviceID)
	assert.Equal(t, []string{"biometric_stress"}, stored.Anomalies)

	require.Len(t, server.tokens, 1)
	token, err := jwt.Parse(server.tokens[0], func(*jwt.Token) (interface{}, error) {
		return []byte("device-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)

	subject, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "bio-07", subject)
	assert.Equal(t, "sensors:write", token.Claims.(jwt.MapClaims)["scope"])
}

func TestClientWithoutSecretSendsDeviceHeaderOnly(t *testing.T) {
	server := &fakeServer{}
	client := NewClient(startFiberServer(t, server.app()))

	_, err := client.SendSensorData(context.Background(), "env-02", dto.SensorReadingRequest{
		SensorType: models.SensorEnvironmental,
		Data:       map[string]interface{}{"temperature": 21.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"env-02"}, server.devices)
	assert.Equal(t, []string{""}, server.tokens)
}

func TestClientFeedURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5000":       "ws://localhost:5000/api/feed/ws",
		"https://truthguard.example/": "wss://truthguard.example/api/feed/ws",
		"http://proxy.local/tg":       "ws://proxy.local/tg/api/feed/ws",
	}

	for base, expected := range cases {
		feedURL, err := NewClient(base).FeedURL()
		require.NoError(t, err)
		assert.Equal(t, expected, feedURL, base)
	}
}

func TestClientHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("http://127.0.0.1:1").Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
