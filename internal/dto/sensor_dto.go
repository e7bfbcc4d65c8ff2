package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// SensorReadingRequest is the payload posted by IoT devices.
// Timestamp is seconds since the Unix epoch; zero means "now".
type SensorReadingRequest struct {
	SensorType string                 `json:"sensor_type" validate:"required,oneof=environmental biometric security"`
	Data       map[string]interface{} `json:"data" validate:"required,min=1"`
	Timestamp  float64                `json:"timestamp" validate:"gte=0"`
}

// SensorReadingQuery filters the sensor listing endpoint.
type SensorReadingQuery struct {
	SensorType string `query:"sensor_type" validate:"omitempty,oneof=environmental biometric security"`
	Limit      int    `query:"limit" validate:"gte=0,lte=200"`
}

// SensorReadingResponse is returned for stored readings.
type SensorReadingResponse struct {
	ID         uint                   `json:"id"`
	SensorType string                 `json:"sensor_type"`
	DeviceID   string                 `json:"device_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
	Anomalies  []string               `json:"anomalies"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// SensorSummaryResponse counts stored readings per sensor type.
type SensorSummaryResponse struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"by_type"`
}

// NewSensorReadingResponse maps a stored reading into its API representation.
func NewSensorReadingResponse(reading models.SensorReading) SensorReadingResponse {
	anomalies := []string{}
	if len(reading.Anomalies) > 0 {
		_ = json.Unmarshal(reading.Anomalies, &anomalies)
	}

	data := map[string]interface{}(reading.Data)
	if data == nil {
		data = map[string]interface{}{}
	}

	return SensorReadingResponse{
		ID:         reading.ID,
		SensorType: reading.SensorType,
		DeviceID:   reading.DeviceID,
		Data:       data,
		Anomalies:  anomalies,
		RecordedAt: reading.RecordedAt,
	}
}

// NewSensorReadingResponseSlice maps a slice of readings.
func NewSensorReadingResponseSlice(readings []models.SensorReading) []SensorReadingResponse {
	result := make([]SensorReadingResponse, 0, len(readings))
	for _, reading := range readings {
		result = append(result, NewSensorReadingResponse(reading))
	}
	return result
}
