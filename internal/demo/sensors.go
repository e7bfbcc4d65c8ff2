package demo

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
)

// Sensor produces simulated readings at a fixed cadence.
type Sensor interface {
	Type() string
	DeviceID() string
	Interval() time.Duration
	Read(rng *rand.Rand) map[string]interface{}
}

// SensorSink receives readings; *Client satisfies it.
type SensorSink interface {
	SendSensorData(ctx context.Context, deviceID string, reading dto.SensorReadingRequest) (dto.SensorReadingResponse, error)
}

// EnvironmentalSensor reports room conditions every 30 seconds.
type EnvironmentalSensor struct{ ID string }

func (s EnvironmentalSensor) Type() string            { return models.SensorEnvironmental }
func (s EnvironmentalSensor) DeviceID() string        { return s.ID }
func (s EnvironmentalSensor) Interval() time.Duration { return 30 * time.Second }

func (s EnvironmentalSensor) Read(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"temperature": round(between(rng, 20, 30), 1),
		"humidity":    round(between(rng, 40, 70), 1),
		"light_level": round(between(rng, 100, 1000), 1),
		"noise_level": round(between(rng, 30, 80), 1),
		"air_quality": round(between(rng, 50, 150), 1),
	}
}

// BiometricSensor reports reader state every 10 seconds.
type BiometricSensor struct{ ID string }

func (s BiometricSensor) Type() string            { return models.SensorBiometric }
func (s BiometricSensor) DeviceID() string        { return s.ID }
func (s BiometricSensor) Interval() time.Duration { return 10 * time.Second }

func (s BiometricSensor) Read(rng *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"heart_rate":      60 + rng.IntN(41),
		"stress_level":    round(between(rng, 0, 1), 2),
		"attention_score": round(between(rng, 0.3, 1), 2),
		"eye_strain":      round(between(rng, 0, 1), 2),
		"posture_score":   round(between(rng, 0.5, 1), 2),
	}
}

// SecuritySensor reports device and network activity every 5 seconds.
type SecuritySensor struct{ ID string }

func (s SecuritySensor) Type() string            { return models.SensorSecurity }
func (s SecuritySensor) DeviceID() string        { return s.ID }
func (s SecuritySensor) Interval() time.Duration { return 5 * time.Second }

func (s SecuritySensor) Read(rng *rand.Rand) map[string]interface{} {
	// Suspicious activity is reported on roughly one reading in twenty.
	suspicious := rng.Float64() < 0.1 && rng.IntN(2) == 0
	return map[string]interface{}{
		"motion_detected":     rng.IntN(2) == 0,
		"camera_active":       true,
		"microphone_active":   true,
		"network_activity":    round(between(rng, 0, 100), 1),
		"suspicious_activity": suspicious,
	}
}

// DefaultSensors returns one sensor of each type.
func DefaultSensors() []Sensor {
	return []Sensor{
		EnvironmentalSensor{ID: "env-01"},
		BiometricSensor{ID: "bio-01"},
		SecuritySensor{ID: "sec-01"},
	}
}

// Manager runs every sensor on its own goroutine until the context ends.
type Manager struct {
	sink      SensorSink
	sensors   []Sensor
	logger    zerolog.Logger
	retry     time.Duration
	newRand   func() *rand.Rand
	now       func() time.Time
	tickScale float64
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithRetryDelay sets the pause after a failed post.
func WithRetryDelay(delay time.Duration) ManagerOption {
	return func(m *Manager) { m.retry = delay }
}

// WithSpeedup divides every sensor interval by factor.
func WithSpeedup(factor float64) ManagerOption {
	return func(m *Manager) {
		if factor > 0 {
			m.tickScale = 1 / factor
		}
	}
}

// WithSeed makes sensor readings reproducible.
func WithSeed(seed uint64) ManagerOption {
	return func(m *Manager) {
		var mu sync.Mutex
		var counter uint64
		m.newRand = func() *rand.Rand {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return rand.New(rand.NewPCG(seed, counter))
		}
	}
}

// NewManager builds a sensor manager posting to sink.
func NewManager(sink SensorSink, sensors []Sensor, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sink:      sink,
		sensors:   sensors,
		logger:    logger.With().Str("component", "sensor_manager").Logger(),
		retry:     5 * time.Second,
		newRand:   func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		now:       time.Now,
		tickScale: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run blocks until ctx is cancelled. Post failures are logged and retried after
// the retry delay; they never stop the other sensors.
func (m *Manager) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, sensor := range m.sensors {
		group.Go(func() error {
			m.monitor(groupCtx, sensor)
			return nil
		})
	}
	return group.Wait()
}

func (m *Manager) monitor(ctx context.Context, sensor Sensor) {
	rng := m.newRand()
	logger := m.logger.With().Str("sensor_type", sensor.Type()).Str("device_id", sensor.DeviceID()).Logger()
	interval := time.Duration(float64(sensor.Interval()) * m.tickScale)

	for {
		wait := interval
		if err := m.emit(ctx, sensor, rng, logger); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("failed to send sensor data")
			wait = m.retry
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (m *Manager) emit(ctx context.Context, sensor Sensor, rng *rand.Rand, logger zerolog.Logger) error {
	now := m.now()
	reading := dto.SensorReadingRequest{
		SensorType: sensor.Type(),
		Data:       sensor.Read(rng),
		Timestamp:  float64(now.UnixNano()) / float64(time.Second),
	}

	stored, err := m.sink.SendSensorData(ctx, sensor.DeviceID(), reading)
	if err != nil {
		return err
	}

	event := logger.Debug()
	if len(stored.Anomalies) > 0 {
		event = logger.Warn().Strs("anomalies", stored.Anomalies)
	}
	event.Uint("reading_id", stored.ID).Msg("sensor reading sent")
	return nil
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
