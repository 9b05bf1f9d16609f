package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/monitoring/middleware"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "k2brd"

// Service owns the Prometheus registry and the service-level collectors.
type Service struct {
	registry           *prom.Registry
	config             config.MonitoringConfig
	http               *middleware.Metrics
	generations        *prom.CounterVec
	generationDuration *prom.HistogramVec
	cardsFetched       *prom.CounterVec
	rateLimitBlocks    *prom.CounterVec
}

// Validate checks that the exporter path can be mounted next to the API.
func Validate(cfg *config.MonitoringConfig) error {
	if cfg.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if cfg.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", cfg.Path)
	}
	if strings.HasPrefix(cfg.Path, "/api/") {
		return fmt.Errorf("monitoring path cannot be under /api/")
	}
	if strings.ContainsRune(cfg.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	return nil
}

// NewService creates the registry and registers every collector. Collectors
// are registered even when monitoring is disabled so callers never branch on it.
func NewService(ctx context.Context, cfg *config.MonitoringConfig) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = &config.Default().Monitoring
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	registry := prom.NewRegistry()
	s := &Service{
		registry: registry,
		config:   *cfg,
		http:     middleware.NewMetrics(namespace),
		generations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "brd_generations_total",
			Help:      "Total BRD generations by outcome",
		}, []string{"outcome"}),
		generationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "brd_generation_duration_seconds",
			Help:      "BRD generation latency per card",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		cardsFetched: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_cards_fetched_total",
			Help:      "Cards returned by the tracker by operation",
		}, []string{"operation"}),
		rateLimitBlocks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Total number of requests blocked by rate limiting",
		}, []string{"route"}),
	}
	toRegister := []prom.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.generations,
		s.generationDuration,
		s.cardsFetched,
		s.rateLimitBlocks,
	}
	toRegister = append(toRegister, s.http.Collectors()...)
	toRegister = append(toRegister, systemCollectors()...)
	for _, c := range toRegister {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	if cfg.Enabled {
		log.Info("Monitoring service initialized", "path", cfg.Path)
	} else {
		log.Debug("Monitoring disabled, exporter will not be mounted")
	}
	return s, nil
}

// IsEnabled reports whether the exporter and HTTP middleware are active.
func (s *Service) IsEnabled() bool {
	return s != nil && s.config.Enabled
}

// Path returns the exporter mount path.
func (s *Service) Path() string {
	return s.config.Path
}

// Registry exposes the underlying registry for tests and custom collectors.
func (s *Service) Registry() *prom.Registry {
	return s.registry
}

// GinMiddleware returns the HTTP metrics middleware, or a pass-through when disabled.
func (s *Service) GinMiddleware() gin.HandlerFunc {
	if !s.IsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return middleware.HTTPMetrics(s.http)
}

// ExporterHandler returns an HTTP handler for the metrics endpoint
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.IsEnabled() {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Monitoring service not enabled")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// ObserveGeneration records one per-card generation attempt.
func (s *Service) ObserveGeneration(outcome string, elapsed time.Duration) {
	s.generations.WithLabelValues(outcome).Inc()
	s.generationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveCards adds n cards returned by a tracker operation.
func (s *Service) ObserveCards(operation string, n int) {
	if n <= 0 {
		return
	}
	s.cardsFetched.WithLabelValues(operation).Add(float64(n))
}

// IncrementBlockedRequests counts a request rejected by the rate limiter.
func (s *Service) IncrementBlockedRequests(route string) {
	s.rateLimitBlocks.WithLabelValues(route).Inc()
}
