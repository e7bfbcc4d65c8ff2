package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxPromptRunes = 12000

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "truthguard",
		Subsystem: "llm",
		Name:      "classification_duration_seconds",
		Help:      "Duration of LLM authorship classification requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "truthguard",
		Subsystem: "llm",
		Name:      "classification_failures_total",
		Help:      "Number of LLM authorship classification failures",
	}, []string{"model"})
)

// ChatCompleter is the subset of the OpenAI client used by the classifier.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig defines configuration options for the OpenAI classifier.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIClassifier implements AuthorshipClassifier against the OpenAI chat completion API.
type OpenAIClassifier struct {
	client ChatCompleter
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClassifier builds a new classifier using the provided configuration.
func NewOpenAIClassifier(cfg OpenAIConfig) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return NewOpenAIClassifierWithClient(openai.NewClientWithConfig(config), cfg), nil
}

// NewOpenAIClassifierWithClient builds a classifier around an existing chat client.
func NewOpenAIClassifierWithClient(client ChatCompleter, cfg OpenAIConfig) *OpenAIClassifier {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIClassifier{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/truthguard-go-api/pkg/ai/openai"),
		logger: logger,
	}
}

// Model reports the configured chat model.
func (c *OpenAIClassifier) Model() string {
	return c.cfg.Model
}

// Classify sends the text to OpenAI and parses the JSON verdict.
func (c *OpenAIClassifier) Classify(parent context.Context, text string) (AuthorshipResult, error) {
	ctx, span := c.tracer.Start(parent, "openai.classify", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Int("text.length", len(text)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: classifierSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fail(span, fmt.Errorf("openai classify: %w", err))
	}

	if len(resp.Choices) == 0 {
		return c.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	result, err := parseAuthorshipResponse(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return c.fail(span, err)
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func (c *OpenAIClassifier) fail(span trace.Span, err error) (AuthorshipResult, error) {
	aiFailures.WithLabelValues(c.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn().Err(err).Str("model", c.cfg.Model).Msg("llm classification failed")
	return AuthorshipResult{}, err
}

func classifierSystemPrompt() string {
	return "You detect machine-generated writing. Respond with a JSON object containing ai_probability (0-1), " +
		"rationale (one sentence) and signals (array of short strings naming the stylistic cues you relied on)."
}

func buildUserPrompt(text string) string {
	runes := []rune(text)
	truncated := false
	if len(runes) > maxPromptRunes {
		runes = runes[:maxPromptRunes]
		truncated = true
	}

	builder := strings.Builder{}
	builder.WriteString("# Text\n")
	builder.WriteString(string(runes))
	if truncated {
		builder.WriteString("\n\n(text truncated)")
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseAuthorshipResponse(content string) (AuthorshipResult, error) {
	type payload struct {
		AIProbability *float64 `json:"ai_probability"`
		Rationale     string   `json:"rationale"`
		Signals       []string `json:"signals"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return AuthorshipResult{}, fmt.Errorf("parse classification json: %w", err)
	}
	if data.AIProbability == nil || math.IsNaN(*data.AIProbability) {
		return AuthorshipResult{}, fmt.Errorf("classification json missing ai_probability")
	}

	probability := *data.AIProbability
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}

	return AuthorshipResult{
		AIProbability: probability,
		Rationale:     data.Rationale,
		Signals:       data.Signals,
	}, nil
}
