package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
	apiErrorsTotal       *prometheus.CounterVec
	fetchCyclesTotal     *prometheus.CounterVec
	symbolFetchesTotal   *prometheus.CounterVec
	samplesStoredTotal   *prometheus.CounterVec
	fetchCycleDuration   *prometheus.HistogramVec
	lastSuccessTimestamp *prometheus.GaugeVec
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method", "endpoint"},
		),
		apiErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"endpoint", "error_type"},
		),
		fetchCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funding_fetch_cycles_total",
				Help: "Total number of funding fetch cycles",
			},
			[]string{"exchange", "status"},
		),
		symbolFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funding_symbol_fetches_total",
				Help: "Total number of per-symbol funding fetches",
			},
			[]string{"exchange", "status"},
		),
		samplesStoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "funding_samples_stored_total",
				Help: "Total number of funding rate samples written to the store",
			},
			[]string{"exchange"},
		),
		fetchCycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "funding_fetch_cycle_duration_seconds",
				Help:    "Funding fetch cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"exchange"},
		),
		lastSuccessTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "funding_last_success_timestamp_seconds",
				Help: "Unix time of the last fetch cycle that stored at least one sample",
			},
			[]string{"exchange"},
		),
	}

	// Register metrics
	prometheus.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.apiErrorsTotal,
		m.fetchCyclesTotal,
		m.symbolFetchesTotal,
		m.samplesStoredTotal,
		m.fetchCycleDuration,
		m.lastSuccessTimestamp,
	)

	return m
}

// MetricsMiddleware creates a Prometheus metrics middleware
func (m *Metrics) MetricsMiddleware() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		// Track in-flight requests
		m.httpRequestsInFlight.WithLabelValues(c.Request.Method, path).Inc()
		defer m.httpRequestsInFlight.WithLabelValues(c.Request.Method, path).Dec()

		// Process request
		c.Next()

		// Record metrics
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)

		// Track errors
		if c.Writer.Status() >= 400 {
			errorType := "client_error"
			if c.Writer.Status() >= 500 {
				errorType = "server_error"
			}
			m.apiErrorsTotal.WithLabelValues(path, errorType).Inc()
		}
	}
}

// PrometheusHandler returns the Prometheus metrics handler
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordFetchCycle records a completed fetch cycle with its final status
func (m *Metrics) RecordFetchCycle(exchange, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchCyclesTotal.WithLabelValues(exchange, status).Inc()
	m.fetchCycleDuration.WithLabelValues(exchange).Observe(duration.Seconds())
}

// RecordSymbolFetch records one per-symbol fetch outcome ("ok" or "failed")
func (m *Metrics) RecordSymbolFetch(exchange, status string) {
	if m == nil {
		return
	}
	m.symbolFetchesTotal.WithLabelValues(exchange, status).Inc()
}

// RecordSampleStored records one sample written to the store
func (m *Metrics) RecordSampleStored(exchange string) {
	if m == nil {
		return
	}
	m.samplesStoredTotal.WithLabelValues(exchange).Inc()
}

// SetLastSuccess marks the time of the last cycle that stored data
func (m *Metrics) SetLastSuccess(exchange string, t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessTimestamp.WithLabelValues(exchange).Set(float64(t.Unix()))
}
