package dto

import (
	"encoding/json"
	"time"
)

// Feed event types.
const (
	FeedEventDetection = "detection"
	FeedEventSensor    = "sensor"
	FeedEventStats     = "stats"
)

// FeedEvent is streamed to live feed subscribers and relayed between nodes.
type FeedEvent struct {
	Type    string          `json:"type"`
	Source  string          `json:"source,omitempty"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// DetectionFeedPayload summarises a verdict for feed subscribers.
type DetectionFeedPayload struct {
	Kind            string    `json:"kind"`
	IsAIGenerated   bool      `json:"is_ai_generated"`
	AIProbability   float64   `json:"ai_probability"`
	ConfidenceScore float64   `json:"confidence_score"`
	AnalysisType    string    `json:"analysis_type"`
	Timestamp       time.Time `json:"timestamp"`
}

// SensorFeedPayload summarises an ingested reading for feed subscribers.
type SensorFeedPayload struct {
	ID         uint      `json:"id"`
	SensorType string    `json:"sensor_type"`
	DeviceID   string    `json:"device_id,omitempty"`
	Anomalies  []string  `json:"anomalies"`
	RecordedAt time.Time `json:"recorded_at"`
}
