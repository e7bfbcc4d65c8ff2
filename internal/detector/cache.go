package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// CachedScorer memoises verdicts of a deterministic scorer in Redis.
// Hits are re-stamped with the current time; cache faults fall through to the inner scorer.
type CachedScorer struct {
	inner  Scorer
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	clock  Clock
}

// NewCachedScorer decorates inner. A nil client disables caching.
func NewCachedScorer(inner Scorer, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedScorer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedScorer{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "verdict_cache").Str("scorer", inner.Name()).Logger(),
		clock:  defaultClock,
	}
}

// Name reports the wrapped scorer's name.
func (s *CachedScorer) Name() string {
	return s.inner.Name()
}

// Score returns a cached verdict when available, otherwise scores and stores the result.
func (s *CachedScorer) Score(ctx context.Context, payload string) (models.Verdict, error) {
	if s.cache == nil {
		return s.inner.Score(ctx, payload)
	}

	key := s.key(payload)
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		var verdict models.Verdict
		if unmarshalErr := json.Unmarshal([]byte(cached), &verdict); unmarshalErr == nil {
			s.logger.Debug().Str("key", key).Msg("verdict cache hit")
			verdict.Timestamp = s.clock()
			return verdict, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read verdict cache")
	}

	verdict, err := s.inner.Score(ctx, payload)
	if err != nil {
		return models.Verdict{}, err
	}

	if encoded, err := json.Marshal(verdict); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to store verdict cache")
		}
	}

	return verdict, nil
}

func (s *CachedScorer) key(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return "verdict:" + s.inner.Name() + ":" + hex.EncodeToString(sum[:])
}
