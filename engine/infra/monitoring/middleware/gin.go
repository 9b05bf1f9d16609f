package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP request collectors.
type Metrics struct {
	requestsTotal    *prom.CounterVec
	requestDuration  *prom.HistogramVec
	requestsInFlight prom.Gauge
}

func NewMetrics(namespace string) *Metrics {
	labels := []string{"method", "path", "status_code"}
	return &Metrics{
		requestsTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, labels),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, labels),
		requestsInFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Currently active HTTP requests",
		}),
	}
}

// Collectors returns the collectors to register.
func (m *Metrics) Collectors() []prom.Collector {
	return []prom.Collector{m.requestsTotal, m.requestDuration, m.requestsInFlight}
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics
func HTTPMetrics(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()
		c.Next()
		m.record(c, start)
	}
}

func (m *Metrics) record(c *gin.Context, start time.Time) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	m.requestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
}
