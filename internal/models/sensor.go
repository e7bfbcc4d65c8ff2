package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sensor types accepted by the ingestion endpoint.
const (
	SensorEnvironmental = "environmental"
	SensorBiometric     = "biometric"
	SensorSecurity      = "security"
)

// SensorReading is one telemetry sample posted by a device.
type SensorReading struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	SensorType string            `gorm:"size:32;index" json:"sensor_type"`
	DeviceID   string            `gorm:"size:64;index" json:"device_id"`
	Data       datatypes.JSONMap `gorm:"type:json" json:"data"`
	Anomalies  datatypes.JSON    `gorm:"type:json" json:"anomalies"`
	RecordedAt time.Time         `gorm:"index" json:"recorded_at"`
	CreatedAt  time.Time         `json:"created_at"`
}
