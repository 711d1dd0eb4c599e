package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPInstruments groups the collectors fed by HTTPMetrics.
type HTTPInstruments struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPInstruments builds the request counter, latency histogram and
// in-flight gauge. The vectors are labelled by method, route and status.
func NewHTTPInstruments(namespace string) *HTTPInstruments {
	labels := []string{"method", "path", "status_code"}
	return &HTTPInstruments{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, labels),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, labels),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Currently active HTTP requests",
		}),
	}
}

// Collectors lists the instruments for registration.
func (h *HTTPInstruments) Collectors() []prometheus.Collector {
	return []prometheus.Collector{h.Requests, h.Duration, h.InFlight}
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics.
func HTTPMetrics(h *HTTPInstruments) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		h.InFlight.Inc()
		defer h.InFlight.Dec()

		c.Next()

		recordMetrics(c, h, start)
	}
}

// recordMetrics labels by route template so study ids do not explode the
// series count.
func recordMetrics(c *gin.Context, h *HTTPInstruments, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	h.Requests.WithLabelValues(c.Request.Method, path, status).Inc()
	h.Duration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
}
