package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the router mounts the scrape endpoint, outside the /api
// group so scrapes are neither rate limited nor counted as API traffic.
const MetricsPath = "/metrics"

// MetricsHandler serves the detection, sensor, feed and stats collectors in the
// Prometheus text format. Collectors are registered on first use.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
