package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/config"
	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/pkg/ai"
)

// scorers holds the configured text and image strategies plus any teardown they need.
type scorers struct {
	text    detector.Scorer
	image   detector.Scorer
	closers []func() error
}

func (s scorers) Close() error {
	var first error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildScorers selects the text scorer from configuration. Deterministic
// scorers are wrapped with the Redis verdict cache when a client is available.
func buildScorers(cfg config.Config, cache *redis.Client, logger zerolog.Logger) (scorers, error) {
	var opts []detector.Option
	if cfg.ScorerSeed != 0 {
		opts = append(opts, detector.WithRandom(detector.SeededRandom(cfg.ScorerSeed)))
	}

	result := scorers{image: detector.NewHeuristicImageScorer(opts...)}

	switch cfg.TextScorer {
	case config.ScorerHeuristic:
		result.text = detector.NewHeuristicTextScorer(opts...)
		return result, nil
	case config.ScorerModel:
		model, err := detector.LoadModelTextScorer(cfg.ModelBundleDir, cfg.ModelMaxLength)
		if err != nil {
			return scorers{}, err
		}
		result.closers = append(result.closers, model.Close)
		result.text = model
	case config.ScorerLLM:
		classifier, err := ai.NewOpenAIClassifier(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
		if err != nil {
			return scorers{}, err
		}
		result.text = detector.NewLLMTextScorer(classifier)
	default:
		return scorers{}, fmt.Errorf("unknown text scorer %q", cfg.TextScorer)
	}

	if cache != nil {
		result.text = detector.NewCachedScorer(result.text, cache, cfg.VerdictCacheTTL, logger)
	}

	return result, nil
}
