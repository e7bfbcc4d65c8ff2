package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/truthguard-go-api/internal/models"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	detectionsTotal       *prometheus.CounterVec
	scoringLatencySeconds *prometheus.HistogramVec
	scoringFailuresTotal  *prometheus.CounterVec

	sensorReadingsTotal  *prometheus.CounterVec
	sensorAnomaliesTotal *prometheus.CounterVec
	feedClientsActive    prometheus.Gauge
	feedEventsTotal      *prometheus.CounterVec

	statsTotal prometheus.Gauge
	statsAI    prometheus.Gauge
	statsHuman prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truthguard_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		detectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_detections_total",
			Help: "Completed detections by content kind and verdict label.",
		}, []string{"kind", "label"})

		scoringLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truthguard_scoring_latency_seconds",
			Help:    "Time spent inside a scorer.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"scorer"})

		scoringFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_scoring_failures_total",
			Help: "Scoring attempts that did not yield a verdict.",
		}, []string{"scorer", "reason"})

		sensorReadingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_sensor_readings_total",
			Help: "Sensor readings accepted by type.",
		}, []string{"sensor_type"})

		sensorAnomaliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_sensor_anomalies_total",
			Help: "Anomalies flagged on incoming sensor readings.",
		}, []string{"sensor_type", "anomaly"})

		feedClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "truthguard_feed_clients_active",
			Help: "Websocket clients currently attached to the live feed.",
		})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthguard_feed_events_total",
			Help: "Events delivered through the live feed broker.",
		}, []string{"type"})

		statsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "truthguard_stats_total_detections",
			Help: "Mirror of the total_detections counter shown on the dashboard.",
		})
		statsAI = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "truthguard_stats_ai_detected",
			Help: "Mirror of the ai_detected counter shown on the dashboard.",
		})
		statsHuman = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "truthguard_stats_human_detected",
			Help: "Mirror of the human_detected counter shown on the dashboard.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			detectionsTotal, scoringLatencySeconds, scoringFailuresTotal,
			sensorReadingsTotal, sensorAnomaliesTotal, feedClientsActive, feedEventsTotal,
			statsTotal, statsAI, statsHuman,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Detections exposes the completed detections counter.
func Detections() *prometheus.CounterVec {
	RegisterMetrics()
	return detectionsTotal
}

// ScoringLatency exposes the per-scorer latency histogram.
func ScoringLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return scoringLatencySeconds
}

// ScoringFailures exposes the per-scorer failure counter.
func ScoringFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return scoringFailuresTotal
}

// SensorReadings exposes the accepted sensor readings counter.
func SensorReadings() *prometheus.CounterVec {
	RegisterMetrics()
	return sensorReadingsTotal
}

// SensorAnomalies exposes the flagged anomaly counter.
func SensorAnomalies() *prometheus.CounterVec {
	RegisterMetrics()
	return sensorAnomaliesTotal
}

// FeedClients exposes the live feed client gauge.
func FeedClients() prometheus.Gauge {
	RegisterMetrics()
	return feedClientsActive
}

// FeedEvents exposes the delivered feed events counter.
func FeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

// MirrorStats copies a stats snapshot into the gauges. It matches stats.Observer.
func MirrorStats(snapshot models.Stats) {
	RegisterMetrics()
	statsTotal.Set(float64(snapshot.TotalDetections))
	statsAI.Set(float64(snapshot.AIDetected))
	statsHuman.Set(float64(snapshot.HumanDetected))
}
