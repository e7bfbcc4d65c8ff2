package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Scorer identifiers accepted by the scorer.text setting.
const (
	ScorerHeuristic = "heuristic"
	ScorerModel     = "model"
	ScorerLLM       = "llm"
)

// Config holds runtime configuration values for the detection service.
type Config struct {
	AppName         string
	AppEnv          string
	AppHost         string
	AppPort         string
	LogLevel        string
	AccessLog       bool
	TextScorer      string
	ScorerSeed      uint64
	ModelBundleDir  string
	ModelMaxLength  int
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AccuracyRate    string
	DatabaseURL     string
	RedisURL        string
	VerdictCacheTTL time.Duration
	NATSURL         string
	FeedChannel     string
	SensorSecret    string
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxBodyBytes    int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppHost + c.AppPort
	}

	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TRUTHGUARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "TruthGuard AI")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", "5000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.access", false)
	v.SetDefault("scorer.text", ScorerHeuristic)
	v.SetDefault("scorer.seed", 0)
	v.SetDefault("model.max_length", 512)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("stats.accuracy_rate", "92%")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("feed.channel", "truthguard")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("http.max_body_bytes", 10*1024*1024)

	cacheTTL, err := parseDuration(v.GetString("cache.ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid verdict cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppHost:         v.GetString("app.host"),
		AppPort:         v.GetString("app.port"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		AccessLog:       v.GetBool("log.access"),
		TextScorer:      strings.ToLower(strings.TrimSpace(v.GetString("scorer.text"))),
		ScorerSeed:      v.GetUint64("scorer.seed"),
		ModelBundleDir:  v.GetString("model.bundle_dir"),
		ModelMaxLength:  v.GetInt("model.max_length"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIModel:     v.GetString("openai.model"),
		OpenAIBaseURL:   v.GetString("openai.base_url"),
		AccuracyRate:    v.GetString("stats.accuracy_rate"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		VerdictCacheTTL: cacheTTL,
		NATSURL:         v.GetString("nats.url"),
		FeedChannel:     v.GetString("feed.channel"),
		SensorSecret:    v.GetString("sensor.secret"),
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		MaxBodyBytes:    v.GetInt("http.max_body_bytes"),
	}

	switch cfg.TextScorer {
	case ScorerHeuristic:
	case ScorerModel:
		if cfg.ModelBundleDir == "" {
			return Config{}, fmt.Errorf("model scorer requires TRUTHGUARD_MODEL_BUNDLE_DIR")
		}
	case ScorerLLM:
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("llm scorer requires TRUTHGUARD_OPENAI_API_KEY")
		}
	default:
		return Config{}, fmt.Errorf("unknown text scorer %q", cfg.TextScorer)
	}

	if cfg.ModelMaxLength <= 0 {
		cfg.ModelMaxLength = 512
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
