package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "obra_erp"

var (
	// HTTP traffic partitioned by method, route template, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Domain counters for the schedule pipeline
	comparacionesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cronograma",
			Name:      "comparaciones_total",
			Help:      "Schedule comparisons started by monitors",
		},
	)

	versionesResueltasTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cronograma",
			Name:      "versiones_resueltas_total",
			Help:      "Schedule versions resolved by an authority",
		},
		[]string{"resultado"},
	)

	exportacionesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cronograma",
			Name:      "exportaciones_total",
			Help:      "Schedule version exports generated",
		},
		[]string{"formato"},
	)
)

// RecordComparacion counts a started schedule comparison.
func RecordComparacion() {
	comparacionesTotal.Inc()
}

// RecordVersionResuelta counts an authority resolution. resultado is
// "aprobada" or "rechazada".
func RecordVersionResuelta(resultado string) {
	versionesResueltasTotal.WithLabelValues(resultado).Inc()
}

// RecordExportacion counts a generated export by format.
func RecordExportacion(formato string) {
	exportacionesTotal.WithLabelValues(formato).Inc()
}

// Metrics returns a Fiber v3 middleware that records the HTTP metrics.
// Labels use the matched route template when available to keep
// cardinality low.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
