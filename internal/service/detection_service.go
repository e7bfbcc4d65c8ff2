package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/middleware"
	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/internal/observability"
	"github.com/noah-isme/truthguard-go-api/internal/stats"
)

// Content kinds used as metric labels and in feed payloads.
const (
	KindText  = "text"
	KindImage = "image"
)

// DetectionService scores submitted content and keeps the aggregate stats current.
type DetectionService interface {
	DetectText(ctx context.Context, req dto.DetectTextRequest) (models.Verdict, error)
	DetectImage(ctx context.Context, req dto.DetectImageRequest) (models.Verdict, error)
	Stats() models.Stats
}

type detectionService struct {
	text      detector.Scorer
	image     detector.Scorer
	stats     *stats.Aggregate
	feed      FeedService
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewDetectionService wires the configured scorers to the stats aggregate. feed may be nil.
func NewDetectionService(text, image detector.Scorer, aggregate *stats.Aggregate, feed FeedService, validate *validator.Validate, logger zerolog.Logger) DetectionService {
	return &detectionService{
		text:      text,
		image:     image,
		stats:     aggregate,
		feed:      feed,
		validator: validate,
		logger:    logger.With().Str("component", "detection_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/truthguard-go-api/internal/service/detection"),
	}
}

func (s *detectionService) DetectText(ctx context.Context, req dto.DetectTextRequest) (models.Verdict, error) {
	if req.Text == nil {
		return models.Verdict{}, fmt.Errorf("%w: text field is required", detector.ErrInvalidInput)
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %s", detector.ErrInvalidInput, err.Error())
	}

	return s.detect(ctx, KindText, s.text, *req.Text)
}

func (s *detectionService) DetectImage(ctx context.Context, req dto.DetectImageRequest) (models.Verdict, error) {
	if req.Image == nil {
		return models.Verdict{}, fmt.Errorf("%w: image field is required", detector.ErrInvalidInput)
	}

	return s.detect(ctx, KindImage, s.image, *req.Image)
}

func (s *detectionService) Stats() models.Stats {
	return s.stats.Snapshot()
}

func (s *detectionService) detect(ctx context.Context, kind string, scorer detector.Scorer, payload string) (models.Verdict, error) {
	attrs := []attribute.KeyValue{
		attribute.String("detection.kind", kind),
		attribute.String("detection.scorer", scorer.Name()),
		attribute.Int("detection.payload_bytes", len(payload)),
	}
	spanCtx, span := s.tracer.Start(ctx, "detection.score", trace.WithAttributes(attrs...))
	defer span.End()

	logger := s.logger.With().
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Str("kind", kind).
		Str("scorer", scorer.Name()).
		Logger()

	start := time.Now()
	verdict, err := scorer.Score(spanCtx, payload)
	observability.ScoringLatency().WithLabelValues(scorer.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.ScoringFailures().WithLabelValues(scorer.Name(), failureReason(err)).Inc()
		logger.Warn().Err(err).Msg("scoring failed")
		return models.Verdict{}, err
	}

	s.stats.Record(verdict)
	observability.Detections().WithLabelValues(kind, verdict.Label()).Inc()
	span.SetAttributes(
		attribute.Float64("detection.ai_probability", verdict.AIProbability),
		attribute.Bool("detection.is_ai_generated", verdict.IsAIGenerated),
	)

	logger.Info().
		Float64("ai_probability", verdict.AIProbability).
		Bool("is_ai_generated", verdict.IsAIGenerated).
		Msg("content scored")

	s.publish(spanCtx, kind, verdict, logger)

	return verdict, nil
}

func (s *detectionService) publish(ctx context.Context, kind string, verdict models.Verdict, logger zerolog.Logger) {
	if s.feed == nil {
		return
	}

	payload := dto.DetectionFeedPayload{
		Kind:            kind,
		IsAIGenerated:   verdict.IsAIGenerated,
		AIProbability:   verdict.AIProbability,
		ConfidenceScore: verdict.ConfidenceScore,
		AnalysisType:    verdict.AnalysisType,
		Timestamp:       verdict.Timestamp,
	}
	if err := s.feed.Publish(ctx, dto.FeedEventDetection, payload); err != nil {
		logger.Warn().Err(err).Msg("failed to relay detection event")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, detector.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, detector.ErrDecodeFailure):
		return "decode"
	case errors.Is(err, detector.ErrModelFailure):
		return "model"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
