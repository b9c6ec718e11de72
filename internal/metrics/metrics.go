// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the server's collectors on their own registry.
type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	AuthAttempts   *prometheus.CounterVec
	Reservations   *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	RateLimited    prometheus.Counter
	QueuePublished *prometheus.CounterVec
}

// New registers every collector under prefix, e.g. "tables".
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		AuthAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Sign-in, sign-up and refresh attempts by outcome",
		}, []string{"kind", "outcome"}),
		Reservations: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_reservation_operations_total",
			Help: "Reservation creates, cancels and confirms",
		}, []string{"operation"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_cache_lookups_total",
			Help: "Response cache lookups by result",
		}, []string{"result"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		QueuePublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_queue_published_total",
			Help: "Reservation events handed to the broker by outcome",
		}, []string{"outcome"}),
	}
}

// Middleware records request counts and latency by route.
func (m *Metrics) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		labels := []string{c.Request().Method, path, strconv.Itoa(status)}
		m.HTTPRequests.WithLabelValues(labels...).Inc()
		m.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Auth records one auth attempt.
func (m *Metrics) Auth(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.AuthAttempts.WithLabelValues(kind, outcome).Inc()
}

// Reservation records a reservation create or cancel.
func (m *Metrics) Reservation(op string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(op).Inc()
}

// Cache records a cache hit or miss.
func (m *Metrics) Cache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// Limited records a request rejected by the rate limiter.
func (m *Metrics) Limited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// Published records the outcome of a queue publish.
func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.QueuePublished.WithLabelValues("error").Inc()
		return
	}
	m.QueuePublished.WithLabelValues("ok").Inc()
}
