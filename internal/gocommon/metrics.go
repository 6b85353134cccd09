package gocommon

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Pre-defined histogram buckets
var (
	// HTTPLatencyBuckets are latency buckets for full HTTP request/response cycle
	HTTPLatencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

	// DetectionLatencyBuckets cover the simulated inference delay of one to three seconds
	DetectionLatencyBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 5.0}

	// ProbabilityBuckets split the 0..100 AI probability into deciles
	ProbabilityBuckets = prometheus.LinearBuckets(10, 10, 10)
)

// Metrics holds all Prometheus metrics for a service.
type Metrics struct {
	// HTTPRequestDuration tracks full HTTP request duration
	HTTPRequestDuration *prometheus.HistogramVec

	// DetectionLatency tracks time spent inside the detector
	DetectionLatency *prometheus.HistogramVec

	// DetectionTotal counts detections by kind and status (success, fallback)
	DetectionTotal *prometheus.CounterVec

	// AIProbability records the distribution of returned probabilities
	AIProbability *prometheus.HistogramVec

	// InFlightRequests tracks currently processing requests
	InFlightRequests *prometheus.GaugeVec

	// CircuitBreakerState tracks circuit breaker states per backend
	CircuitBreakerState *prometheus.GaugeVec

	// ReportsExported counts reports persisted for download
	ReportsExported prometheus.Counter

	// EventsFlushed counts detection events moved from the stream to the store
	EventsFlushed prometheus.Counter

	// ServiceName is the name of this service
	ServiceName string

	hostname string
}

// NewMetrics creates and registers the service metrics on reg.
func NewMetrics(serviceName string, reg prometheus.Registerer) *Metrics {
	hostname, _ := os.Hostname()

	m := &Metrics{
		ServiceName: serviceName,
		hostname:    hostname,
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds (full request/response cycle)",
				Buckets: HTTPLatencyBuckets,
			},
			[]string{"service", "method", "endpoint", "status_code"},
		),
		DetectionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "detector_detection_latency_seconds",
				Help:    "Detection latency in seconds, including the simulated delay",
				Buckets: DetectionLatencyBuckets,
			},
			[]string{"kind"},
		),
		DetectionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "detector_detection_total",
				Help: "Total detections",
			},
			[]string{"kind", "status"},
		),
		AIProbability: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "detector_ai_probability",
				Help:    "Distribution of returned AI probabilities",
				Buckets: ProbabilityBuckets,
			},
			[]string{"kind"},
		),
		InFlightRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "detector_in_flight_requests",
				Help: "Number of in-flight requests",
			},
			[]string{"pod"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "detector_backend_circuit_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"backend"},
		),
		ReportsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detector_reports_exported_total",
			Help: "Total reports persisted for download",
		}),
		EventsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detector_worker_events_flushed_total",
			Help: "Total detection events flushed from the stream to the store",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestDuration,
		m.DetectionLatency,
		m.DetectionTotal,
		m.AIProbability,
		m.InFlightRequests,
		m.CircuitBreakerState,
		m.ReportsExported,
		m.EventsFlushed,
	)

	// Initialize to 0 so it's exposed immediately
	m.InFlightRequests.WithLabelValues(hostname).Set(0)

	return m
}

// ObserveDetection records one detection outcome.
func (m *Metrics) ObserveDetection(kind, status string, probability float64, elapsed time.Duration) {
	m.DetectionLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.DetectionTotal.WithLabelValues(kind, status).Inc()
	m.AIProbability.WithLabelValues(kind).Observe(probability)
}

// Middleware returns fiber middleware that tracks HTTP request metrics.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip metrics collection for /metrics endpoint
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		m.InFlightRequests.WithLabelValues(m.hostname).Inc()
		defer m.InFlightRequests.WithLabelValues(m.hostname).Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// Route pattern keeps label cardinality bounded
		m.HTTPRequestDuration.WithLabelValues(
			m.ServiceName,
			c.Method(),
			c.Route().Path,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())

		return err
	}
}
