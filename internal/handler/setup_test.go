package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/config"
	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/internal/handler"
	"github.com/noah-isme/truthguard-go-api/internal/middleware"
	"github.com/noah-isme/truthguard-go-api/internal/router"
	"github.com/noah-isme/truthguard-go-api/internal/service"
	"github.com/noah-isme/truthguard-go-api/internal/stats"
	"github.com/noah-isme/truthguard-go-api/internal/web"
)

const aiDemoSample = "Artificial intelligence has revolutionized numerous industries by automating complex processes and enabling data-driven decision making. Machine learning algorithms can analyze vast datasets to identify patterns and make predictions with remarkable accuracy. This technological advancement has transformed business operations."

type testApp struct {
	app       *fiber.App
	detection service.DetectionService
	feed      service.FeedService
}

type appOptions struct {
	sensors   service.SensorService
	guards    []fiber.Handler
	rateLimit int
}

func newTestApp(t *testing.T, opts appOptions) testApp {
	t.Helper()
	logger := zerolog.New(io.Discard)

	cfg := config.Config{AppName: "TruthGuard AI", AppEnv: "test", TextScorer: config.ScorerHeuristic}
	feed := service.NewFeedService(nil, nil, "test", logger)
	detection := service.NewDetectionService(
		detector.NewHeuristicTextScorer(),
		detector.NewHeuristicImageScorer(),
		stats.New("92%"),
		feed,
		validator.New(),
		logger,
	)

	dashboard, err := web.NewDashboard()
	require.NoError(t, err)

	var limiter fiber.Handler
	if opts.rateLimit > 0 {
		limiter = middleware.RateLimit("detect", opts.rateLimit, time.Minute, handler.RateLimited)
	}

	deps := router.Dependencies{
		DetectionHandler: handler.NewDetectionHandler(detection, limiter, logger),
		StatsHandler:     handler.NewStatsHandler(detection),
		FeedHandler:      handler.NewFeedHandler(feed, detection, logger),
		DashboardHandler: handler.NewDashboardHandler(dashboard, detection, cfg.AppName, cfg.TextScorer, logger),
	}
	if opts.sensors != nil {
		deps.SensorHandler = handler.NewSensorHandler(opts.sensors, logger, opts.guards...)
	}

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(logger)})
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	return testApp{app: app, detection: detection, feed: feed}
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return listener.Addr().String(), shutdown
}
