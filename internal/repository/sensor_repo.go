package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// SensorReadingFilter narrows sensor reading listings.
type SensorReadingFilter struct {
	SensorType string
	DeviceID   string
	Limit      int
}

// SensorTypeCount is one row of the per-type reading summary.
type SensorTypeCount struct {
	SensorType string
	Count      int64
}

// SensorReadingRepository persists device telemetry.
type SensorReadingRepository interface {
	Create(ctx context.Context, reading *models.SensorReading) error
	List(ctx context.Context, filter SensorReadingFilter) ([]models.SensorReading, error)
	CountByType(ctx context.Context) ([]SensorTypeCount, error)
}

type sensorReadingRepository struct {
	db *gorm.DB
}

// NewSensorReadingRepository constructs a repository backed by GORM.
func NewSensorReadingRepository(db *gorm.DB) SensorReadingRepository {
	return &sensorReadingRepository{db: db}
}

func (r *sensorReadingRepository) Create(ctx context.Context, reading *models.SensorReading) error {
	return r.db.WithContext(ctx).Create(reading).Error
}

// List returns the newest readings first.
func (r *sensorReadingRepository) List(ctx context.Context, filter SensorReadingFilter) ([]models.SensorReading, error) {
	query := r.db.WithContext(ctx).Model(&models.SensorReading{})
	if filter.SensorType != "" {
		query = query.Where("sensor_type = ?", filter.SensorType)
	}
	if filter.DeviceID != "" {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var readings []models.SensorReading
	if err := query.Order("recorded_at DESC").Order("id DESC").Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *sensorReadingRepository) CountByType(ctx context.Context) ([]SensorTypeCount, error) {
	var counts []SensorTypeCount
	err := r.db.WithContext(ctx).
		Model(&models.SensorReading{}).
		Select("sensor_type, COUNT(*) AS count").
		Group("sensor_type").
		Order("sensor_type").
		Scan(&counts).
		Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
