package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors on a private registry.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ReportsBuilt     *prometheus.CounterVec
	AnomaliesFlagged *prometheus.CounterVec
	AlertsPublished  prometheus.Counter
}

func NewMetrics(serviceName string) *Metrics {
	const namespace = "ledger_analytics"
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: serviceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
	)

	m.ReportsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Analytics reports served, by report and outcome",
		},
		[]string{"service", "report", "status"},
	)

	m.AnomaliesFlagged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_flagged_total",
			Help:      "Days flagged as anomalous, by series",
		},
		[]string{"service", "series"},
	)

	m.AlertsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "anomaly_alerts_published_total",
			Help:        "Anomaly alerts published to Pub/Sub",
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ReportsBuilt,
		m.AnomaliesFlagged,
		m.AlertsPublished,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordReport(report string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.ReportsBuilt.WithLabelValues(m.serviceName, report, status).Inc()
}

func (m *Metrics) RecordAnomalies(series string, count int) {
	if count <= 0 {
		return
	}
	m.AnomaliesFlagged.WithLabelValues(m.serviceName, series).Add(float64(count))
}

func (m *Metrics) RecordAlertsPublished(count int) {
	if count <= 0 {
		return
	}
	m.AlertsPublished.Add(float64(count))
}

// MetricsMiddleware records request count, latency and in-flight gauge,
// labelled by the matched route template.
func MetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(started))
	}
}
