package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/internal/observability"
	"github.com/noah-isme/truthguard-go-api/internal/repository"
)

// Anomaly labels attached to sensor readings.
const (
	AnomalyBiometricStress    = "biometric_stress"
	AnomalySuspiciousActivity = "suspicious_activity"
	AnomalyPoorAirQuality     = "poor_air_quality"
)

const (
	defaultSensorListLimit = 50
	maxSensorNestingDepth  = 4
)

// ErrSensorValidation wraps request validation failures so handlers can answer 400.
var ErrSensorValidation = errors.New("invalid sensor reading")

// SensorService ingests and lists device telemetry.
type SensorService interface {
	Ingest(ctx context.Context, deviceID string, req dto.SensorReadingRequest) (dto.SensorReadingResponse, error)
	List(ctx context.Context, query dto.SensorReadingQuery) ([]dto.SensorReadingResponse, error)
	Summary(ctx context.Context) (dto.SensorSummaryResponse, error)
}

type sensorService struct {
	repo      repository.SensorReadingRepository
	feed      FeedService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewSensorService constructs a sensor service. feed may be nil.
func NewSensorService(repo repository.SensorReadingRepository, feed FeedService, validate *validator.Validate, logger zerolog.Logger) SensorService {
	return &sensorService{
		repo:      repo,
		feed:      feed,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "sensor_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/truthguard-go-api/internal/service/sensor"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *sensorService) Ingest(ctx context.Context, deviceID string, req dto.SensorReadingRequest) (dto.SensorReadingResponse, error) {
	req.SensorType = strings.ToLower(strings.TrimSpace(req.SensorType))
	if err := s.validator.Struct(req); err != nil {
		return dto.SensorReadingResponse{}, fmt.Errorf("%w: %s", ErrSensorValidation, err.Error())
	}

	attrs := []attribute.KeyValue{
		attribute.String("sensor.type", req.SensorType),
		attribute.String("sensor.device_id", deviceID),
	}
	spanCtx, span := s.tracer.Start(ctx, "sensors.ingest", trace.WithAttributes(attrs...))
	defer span.End()

	data := s.sanitizeMap(req.Data, 0)
	anomalies := DetectAnomalies(req.SensorType, data)
	encodedAnomalies, err := json.Marshal(anomalies)
	if err != nil {
		return dto.SensorReadingResponse{}, err
	}

	reading := models.SensorReading{
		SensorType: req.SensorType,
		DeviceID:   strings.TrimSpace(deviceID),
		Data:       datatypes.JSONMap(data),
		Anomalies:  datatypes.JSON(encodedAnomalies),
		RecordedAt: s.recordedAt(req.Timestamp),
	}

	if err := s.repo.Create(spanCtx, &reading); err != nil {
		span.RecordError(err)
		return dto.SensorReadingResponse{}, err
	}

	observability.SensorReadings().WithLabelValues(reading.SensorType).Inc()
	for _, anomaly := range anomalies {
		observability.SensorAnomalies().WithLabelValues(reading.SensorType, anomaly).Inc()
	}

	response := dto.NewSensorReadingResponse(reading)
	if len(anomalies) > 0 {
		s.logger.Warn().
			Str("sensor_type", reading.SensorType).
			Str("device_id", reading.DeviceID).
			Strs("anomalies", anomalies).
			Msg("sensor anomaly flagged")
	}

	if s.feed != nil {
		payload := dto.SensorFeedPayload{
			ID:         response.ID,
			SensorType: response.SensorType,
			DeviceID:   response.DeviceID,
			Anomalies:  response.Anomalies,
			RecordedAt: response.RecordedAt,
		}
		if err := s.feed.Publish(spanCtx, dto.FeedEventSensor, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to relay sensor event")
		}
	}

	return response, nil
}

func (s *sensorService) List(ctx context.Context, query dto.SensorReadingQuery) ([]dto.SensorReadingResponse, error) {
	query.SensorType = strings.ToLower(strings.TrimSpace(query.SensorType))
	if err := s.validator.Struct(query); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSensorValidation, err.Error())
	}

	// The query validator already rejects limits above 200.
	limit := query.Limit
	if limit == 0 {
		limit = defaultSensorListLimit
	}

	readings, err := s.repo.List(ctx, repository.SensorReadingFilter{SensorType: query.SensorType, Limit: limit})
	if err != nil {
		return nil, err
	}

	return dto.NewSensorReadingResponseSlice(readings), nil
}

// Summary reports every known sensor type, including types with no readings yet.
func (s *sensorService) Summary(ctx context.Context) (dto.SensorSummaryResponse, error) {
	counts, err := s.repo.CountByType(ctx)
	if err != nil {
		return dto.SensorSummaryResponse{}, err
	}

	summary := dto.SensorSummaryResponse{ByType: map[string]int64{
		models.SensorEnvironmental: 0,
		models.SensorBiometric:     0,
		models.SensorSecurity:      0,
	}}
	for _, row := range counts {
		summary.ByType[row.SensorType] = row.Count
		summary.Total += row.Count
	}
	return summary, nil
}

func (s *sensorService) recordedAt(timestamp float64) time.Time {
	if timestamp <= 0 || math.IsInf(timestamp, 0) || math.IsNaN(timestamp) {
		return s.now()
	}
	seconds, fraction := math.Modf(timestamp)
	return time.Unix(int64(seconds), int64(fraction*float64(time.Second))).UTC()
}

// sanitizeMap strips markup from string values and drops nesting beyond a fixed depth.
func (s *sensorService) sanitizeMap(data map[string]interface{}, depth int) map[string]interface{} {
	clean := make(map[string]interface{}, len(data))
	for key, value := range data {
		key = strings.TrimSpace(s.sanitizer.Sanitize(key))
		if key == "" {
			continue
		}
		if v, keep := s.sanitizeValue(value, depth); keep {
			clean[key] = v
		}
	}
	return clean
}

func (s *sensorService) sanitizeValue(value interface{}, depth int) (interface{}, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(s.sanitizer.Sanitize(v)), true
	case map[string]interface{}:
		if depth >= maxSensorNestingDepth {
			return nil, false
		}
		return s.sanitizeMap(v, depth+1), true
	case []interface{}:
		if depth >= maxSensorNestingDepth {
			return nil, false
		}
		items := make([]interface{}, 0, len(v))
		for _, item := range v {
			if cleaned, keep := s.sanitizeValue(item, depth+1); keep {
				items = append(items, cleaned)
			}
		}
		return items, true
	default:
		return v, true
	}
}

// DetectAnomalies applies the per-sensor alert rules to a reading's data.
func DetectAnomalies(sensorType string, data map[string]interface{}) []string {
	anomalies := []string{}

	switch sensorType {
	case models.SensorBiometric:
		stress, okStress := number(data["stress_level"])
		attention, okAttention := number(data["attention_score"])
		if okStress && okAttention && stress >= 0.7 && attention <= 0.3 {
			anomalies = append(anomalies, AnomalyBiometricStress)
		}
	case models.SensorSecurity:
		if suspicious, ok := data["suspicious_activity"].(bool); ok && suspicious {
			anomalies = append(anomalies, AnomalySuspiciousActivity)
		}
	case models.SensorEnvironmental:
		if quality, ok := number(data["air_quality"]); ok && quality > 140 {
			anomalies = append(anomalies, AnomalyPoorAirQuality)
		}
	}

	return anomalies
}

func number(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
