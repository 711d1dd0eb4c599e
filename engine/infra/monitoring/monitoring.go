package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/systragroup/SG-DataDashboard/engine/infra/monitoring/middleware"
	"github.com/systragroup/SG-DataDashboard/pkg/config"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

const namespace = "sgdash"

// Upload outcomes recorded by RecordUpload.
const (
	UploadSuccess = "success"
	UploadFailure = "failure"
)

// StudyCounter reports how many studies are visible and hidden.
type StudyCounter interface {
	Count(ctx context.Context) (visible, hidden int, err error)
}

// Service encapsulates the Prometheus registry and the dashboard collectors.
type Service struct {
	config      config.MonitoringConfig
	registry    *prometheus.Registry
	http        *middleware.HTTPInstruments
	uploads     *prometheus.CounterVec
	initialized bool
}

// NewMonitoringService creates the registry and registers the collectors. A
// disabled service hands out no-op middleware and a 503 exporter.
func NewMonitoringService(ctx context.Context, cfg config.MonitoringConfig) (*Service, error) {
	log := logger.FromContext(ctx)
	if !cfg.Enabled {
		log.Debug("Monitoring disabled")
		return &Service{config: cfg}, nil
	}
	registry := prometheus.NewRegistry()
	instruments := middleware.NewHTTPInstruments(namespace)
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Geographic file uploads by layer kind and result",
	}, []string{"kind", "result"})
	toRegister := append(instruments.Collectors(),
		uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range toRegister {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	log.Info("Monitoring service initialized successfully", "path", cfg.Path)
	return &Service{
		config:      cfg,
		registry:    registry,
		http:        instruments,
		uploads:     uploads,
		initialized: true,
	}, nil
}

// IsInitialized reports whether metrics are collected.
func (s *Service) IsInitialized() bool {
	return s != nil && s.initialized
}

// Path is where the exporter is mounted.
func (s *Service) Path() string {
	return s.config.Path
}

// GinMiddleware returns Gin middleware for HTTP metrics.
func (s *Service) GinMiddleware() gin.HandlerFunc {
	if !s.IsInitialized() {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.HTTPMetrics(s.http)
}

// RecordUpload counts one upload attempt.
func (s *Service) RecordUpload(kind, result string) {
	if !s.IsInitialized() {
		return
	}
	s.uploads.WithLabelValues(kind, result).Inc()
}

// RegisterStudyCounter exposes the study gauge, read from counter at scrape
// time.
func (s *Service) RegisterStudyCounter(counter StudyCounter) error {
	if !s.IsInitialized() {
		return nil
	}
	if err := s.registry.Register(newStudyCollector(counter)); err != nil {
		return fmt.Errorf("failed to register study collector: %w", err)
	}
	return nil
}

// ExporterHandler returns an HTTP handler for the metrics endpoint.
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.IsInitialized() {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Monitoring service not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

type studyCollector struct {
	counter StudyCounter
	desc    *prometheus.Desc
}

func newStudyCollector(counter StudyCounter) *studyCollector {
	return &studyCollector{
		counter: counter,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "studies"),
			"Studies in the catalog by visibility",
			[]string{"visibility"}, nil,
		),
	}
}

func (c *studyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *studyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	visible, hidden, err := c.counter.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count studies", "error", err)
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(visible), "visible")
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(hidden), "hidden")
}
