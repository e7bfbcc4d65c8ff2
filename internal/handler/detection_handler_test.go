package handler_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/internal/models"
)

const verdictSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["is_ai_generated", "ai_probability", "human_probability", "confidence_score", "explanation", "metadata", "timestamp"],
  "properties": {
    "is_ai_generated": {"type": "boolean"},
    "ai_probability": {"type": "number", "minimum": 0, "maximum": 1},
    "human_probability": {"type": "number", "minimum": 0, "maximum": 1},
    "confidence_score": {"type": "number", "minimum": 0.5, "maximum": 1},
    "explanation": {"type": "string", "minLength": 1},
    "metadata": {"type": "object"},
    "timestamp": {"type": "string", "format": "date-time"},
    "analysis_type": {"type": "string"}
  }
}`

func compileVerdictSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("verdict.schema.json", strings.NewReader(verdictSchema)))
	schema, err := compiler.Compile("verdict.schema.json")
	require.NoError(t, err)
	return schema
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDetectTextDemoSampleMatchesContract(t *testing.T) {
	ta := newTestApp(t, appOptions{})
	schema := compileVerdictSchema(t)

	resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": aiDemoSample})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))

	var verdict models.Verdict
	require.NoError(t, json.Unmarshal(body, &verdict))
	require.True(t, verdict.IsAIGenerated)
	require.InDelta(t, 1.0, verdict.AIProbability+verdict.HumanProbability, 1e-9)
	require.Equal(t, models.AnalysisHeuristicText, verdict.AnalysisType)
	require.Equal(t, detector.RiskLevel(verdict.AIProbability), verdict.Metadata["risk_level"])
}

func TestDetectTextMissingFieldReturnsError(t *testing.T) {
	ta := newTestApp(t, appOptions{})

	resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"content": "wrong key"})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var payload map[string]string
	decodeResponse(t, resp, &payload)
	require.Contains(t, payload["error"], "text")
	require.Len(t, payload, 1)

	require.Zero(t, ta.detection.Stats().TotalDetections)
}

func TestDetectTextMalformedBodyReturnsError(t *testing.T) {
	ta := newTestApp(t, appOptions{})

	resp := postJSON(t, ta.app, "/api/detect-text", `{"text":`)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var payload map[string]string
	decodeResponse(t, resp, &payload)
	require.NotEmpty(t, payload["error"])
}

func TestDetectTextEmptyString(t *testing.T) {
	ta := newTestApp(t, appOptions{})

	resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": ""})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var verdict models.Verdict
	decodeResponse(t, resp, &verdict)
	require.False(t, verdict.IsAIGenerated)
	require.EqualValues(t, 0, verdict.Metadata["word_count"])
}

func TestDetectTextAcceptsLongInput(t *testing.T) {
	ta := newTestApp(t, appOptions{})
	text := strings.Repeat("word ", 50000)

	resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": text})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var verdict models.Verdict
	decodeResponse(t, resp, &verdict)
	require.EqualValues(t, 50000, verdict.Metadata["word_count"])
	require.EqualValues(t, len(text), verdict.Metadata["character_count"])
	require.Equal(t, int64(1), ta.detection.Stats().TotalDetections)
}

func TestDetectImageValidPNG(t *testing.T) {
	ta := newTestApp(t, appOptions{})
	schema := compileVerdictSchema(t)

	resp := postJSON(t, ta.app, "/api/detect-image", map[string]string{"image": pngDataURI(t)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	decodeResponse(t, resp, &payload)
	require.NoError(t, schema.Validate(payload))

	metadata := payload["metadata"].(map[string]interface{})
	require.EqualValues(t, 4, metadata["width"])
	require.EqualValues(t, 3, metadata["height"])
	require.EqualValues(t, 0, metadata["faces_detected"])
	require.Equal(t, models.AnalysisImage, payload["analysis_type"])
}

func TestDetectImageMalformedBase64ReturnsError(t *testing.T) {
	ta := newTestApp(t, appOptions{})

	for _, raw := range []string{"data:image/png;base64,%%%notbase64", "aGVsbG8gd29ybGQ=", ""} {
		resp := postJSON(t, ta.app, "/api/detect-image", map[string]string{"image": raw})
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		var payload map[string]string
		decodeResponse(t, resp, &payload)
		require.Equal(t, "invalid image data", payload["error"])
	}

	require.Zero(t, ta.detection.Stats().TotalDetections)
}

func TestStatsCountEverySuccessfulCall(t *testing.T) {
	ta := newTestApp(t, appOptions{})

	const n = 7
	for i := 0; i < n; i++ {
		resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": "short note number one"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp := postJSON(t, ta.app, "/api/detect-image", map[string]string{"image": pngDataURI(t)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = postJSON(t, ta.app, "/api/detect-text", map[string]string{})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp = get(t, ta.app, "/api/stats")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var snapshot models.Stats
	decodeResponse(t, resp, &snapshot)
	require.Equal(t, int64(n+1), snapshot.TotalDetections)
	require.Equal(t, snapshot.TotalDetections, snapshot.AIDetected+snapshot.HumanDetected)
	require.Equal(t, "92%", snapshot.AccuracyRate)
}

func TestDetectionRateLimit(t *testing.T) {
	ta := newTestApp(t, appOptions{rateLimit: 2})

	for i := 0; i < 2; i++ {
		resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": "hello"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp := postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": "hello"})
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	var payload map[string]string
	decodeResponse(t, resp, &payload)
	require.Equal(t, "rate limit exceeded", payload["error"])
}

func TestDashboardShowsStats(t *testing.T) {
	ta := newTestApp(t, appOptions{})
	postJSON(t, ta.app, "/api/detect-text", map[string]string{"text": aiDemoSample})

	resp := get(t, ta.app, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `<strong id="stat-total">1</strong>`)
}

func TestFeedRequiresUpgrade(t *testing.T) {
	ta := newTestApp(t, appOptions{})
	resp := get(t, ta.app, "/api/feed/ws")
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
