// Package demo drives a running TruthGuard server: simulated IoT sensors, a
// scripted walkthrough of the detection endpoints and a live feed watcher.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for non-2xx answers.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the TruthGuard HTTP API.
type Client struct {
	baseURL      string
	timeout      time.Duration
	deviceSecret string
	tokenTTL     time.Duration
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithDeviceSecret makes sensor posts carry an HS256 device token signed with secret.
func WithDeviceSecret(secret string) ClientOption {
	return func(c *Client) {
		c.deviceSecret = secret
	}
}

// NewClient returns a client for the server rooted at baseURL, e.g. http://localhost:5000.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  defaultTimeout,
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL reports the server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DetectText scores text.
func (c *Client) DetectText(ctx context.Context, text string) (models.Verdict, error) {
	var verdict models.Verdict
	err := c.do(ctx, fiber.MethodPost, "/api/detect-text", map[string]string{"text": text}, nil, &verdict)
	return verdict, err
}

// DetectImage scores a base64 image, with or without a data URI prefix.
func (c *Client) DetectImage(ctx context.Context, image string) (models.Verdict, error) {
	var verdict models.Verdict
	err := c.do(ctx, fiber.MethodPost, "/api/detect-image", map[string]string{"image": image}, nil, &verdict)
	return verdict, err
}

// Stats fetches the aggregate detection counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var snapshot models.Stats
	err := c.do(ctx, fiber.MethodGet, "/api/stats", nil, nil, &snapshot)
	return snapshot, err
}

// SendSensorData posts one reading on behalf of deviceID.
func (c *Client) SendSensorData(ctx context.Context, deviceID string, reading dto.SensorReadingRequest) (dto.SensorReadingResponse, error) {
	headers := map[string]string{"X-Device-ID": deviceID}
	if c.deviceSecret != "" {
		token, err := SignDeviceToken(c.deviceSecret, deviceID, c.tokenTTL)
		if err != nil {
			return dto.SensorReadingResponse{}, err
		}
		headers[fiber.HeaderAuthorization] = "Bearer " + token
	}

	var envelope struct {
		Success bool                      `json:"success"`
		Message string                    `json:"message"`
		Data    dto.SensorReadingResponse `json:"data"`
	}
	if err := c.do(ctx, fiber.MethodPost, "/api/sensor-data", reading, headers, &envelope); err != nil {
		return dto.SensorReadingResponse{}, err
	}
	return envelope.Data, nil
}

// FeedURL returns the websocket address of the live feed.
func (c *Client) FeedURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/feed/ws"
	return parsed.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	agent.Timeout(timeout)
	for key, value := range headers {
		agent.Set(key, value)
	}
	if body != nil {
		agent.JSON(body)
	}

	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errs[0])
	}

	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return &APIError{Status: status, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage understands both the detection {"error"} shape and the envelope.
func errorMessage(raw []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// SignDeviceToken issues a device token granting sensors:write.
func SignDeviceToken(secret, deviceID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   deviceID,
		"scope": "sensors:write",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
