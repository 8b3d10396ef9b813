// Package metrics exposes Prometheus instruments for the order lifecycle
// and the HTTP surface.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderflow"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	transitions  *prometheus.CounterVec
	adjustments  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	published    *prometheus.CounterVec
	progressSize prometheus.Histogram
	overdue      *prometheus.GaugeVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Use prometheus.NewRegistry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Committed status transitions.",
		}, []string{"from", "to", "action"}),

		adjustments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "adjustments_total",
			Help:      "Committed phase estimate adjustments.",
		}, []string{"phase", "delta", "floored"}),

		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "rejected_commands_total",
			Help:      "Commands refused before anything was persisted.",
		}, []string{"action", "reason"}),

		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Order update notifications handed to sinks.",
		}, []string{"sink", "result"}),

		progressSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "batch_size",
			Help:      "Number of orders requested per progress batch.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),

		overdue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "overdue_phases",
			Help:      "Running phases past their estimate at the last scan.",
		}, []string{"phase"}),

		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"method", "route", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Transition(from, to order.Status, action order.ActionKind) {
	m.transitions.WithLabelValues(from.String(), to.String(), action.String()).Inc()
}

func (m *Metrics) Adjustment(phase order.Phase, delta order.Delta, floored bool) {
	m.adjustments.WithLabelValues(phase.String(), strconv.Itoa(delta.Minutes()), strconv.FormatBool(floored)).Inc()
}

// Rejected counts a refused command under the error family of err.
func (m *Metrics) Rejected(action string, err error) {
	m.rejections.WithLabelValues(action, Reason(err)).Inc()
}

func (m *Metrics) Published(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) ProgressBatch(size int) {
	m.progressSize.Observe(float64(size))
}

func (m *Metrics) Overdue(phase order.Phase, count int) {
	m.overdue.WithLabelValues(phase.String()).Set(float64(count))
}

// Reason maps an error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, errs.ErrStaleState):
		return "stale_state"
	case errors.Is(err, errs.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, errs.ErrObjectNotFound):
		return "not_found"
	case errs.IsValidation(err):
		return "invalid"
	default:
		return "internal"
	}
}

// Middleware records in-flight requests, totals and latency per route
// pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			labels := prometheus.Labels{
				"method": c.Request().Method,
				"route":  route,
				"status": strconv.Itoa(status),
			}
			m.httpRequests.With(labels).Inc()
			m.httpDuration.With(labels).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
