package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pii_sanitizer"

// Collector holds the service metrics on its own registry so several
// servers can live in one process.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	entitiesTotal     *prometheus.CounterVec
	detectionDuration *prometheus.HistogramVec
	detectorErrors    *prometheus.CounterVec
	modelHealthy      prometheus.Gauge
}

// NewCollector creates a collector with Go runtime and process metrics
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		entitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_detected_total",
			Help:      "Entities reported by analyze and sanitize, by operation and type.",
		}, []string{"operation", "type"}),
		detectionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detector_duration_seconds",
			Help:      "Time spent in each detector.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"detector"}),
		detectorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_errors_total",
			Help:      "Detector failures skipped by the ensemble.",
		}, []string{"detector"}),
		modelHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_healthy",
			Help:      "1 when the ONNX model is loaded and healthy.",
		}),
	}
}

// Registry returns the Prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveRequest records one HTTP request
func (c *Collector) ObserveRequest(route, method string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveEntities counts entities by type for an operation
func (c *Collector) ObserveEntities(operation string, types []string) {
	for _, t := range types {
		c.entitiesTotal.WithLabelValues(operation, t).Inc()
	}
}

// ObserveDetection records one detector run. It satisfies the ensemble's
// observer interface.
func (c *Collector) ObserveDetection(detector string, duration time.Duration, err error) {
	c.detectionDuration.WithLabelValues(detector).Observe(duration.Seconds())
	if err != nil {
		c.detectorErrors.WithLabelValues(detector).Inc()
	}
}

// SetModelHealthy reports the model manager state
func (c *Collector) SetModelHealthy(healthy bool) {
	if healthy {
		c.modelHealthy.Set(1)
		return
	}
	c.modelHealthy.Set(0)
}
