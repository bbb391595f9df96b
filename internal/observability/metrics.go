package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	inFlight          prometheus.Gauge
	errorsTotal       *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
	rateLimitFailures *prometheus.CounterVec
	authOutcomes      *prometheus.CounterVec
	mailDeliveries    *prometheus.CounterVec
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses partitioned by error code",
		}, []string{"method", "route", "code"}),
		rateLimitRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"scope"}),
		rateLimitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_backend_failures_total",
			Help: "Rate limit checks that could not reach the counter backend",
		}, []string{"scope"}),
		authOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Authentication workflow outcomes",
		}, []string{"operation", "outcome"}),
		mailDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_deliveries_total",
			Help: "Outbound mail attempts by template and result",
		}, []string{"template", "result"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest tracks a finished HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.requestsTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordRateLimitRejection counts a rejected request for scope.
func (m *Metrics) RecordRateLimitRejection(scope string) {
	if m == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(scope).Inc()
}

// RecordRateLimitFailure counts a backend failure for scope.
func (m *Metrics) RecordRateLimitFailure(scope string) {
	if m == nil {
		return
	}
	m.rateLimitFailures.WithLabelValues(scope).Inc()
}

// RecordAuthOutcome counts a workflow outcome such as login/success.
func (m *Metrics) RecordAuthOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordMailDelivery counts a delivery attempt.
func (m *Metrics) RecordMailDelivery(template string, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.mailDeliveries.WithLabelValues(template, result).Inc()
}
