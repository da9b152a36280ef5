package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bivex/paywall-purchases/internal/domain/event"
)

// Metrics implements event.Metrics using Prometheus and also tracks the
// host HTTP traffic.
type Metrics struct {
	eventsDispatchedTotal *prometheus.CounterVec
	listenerCallsTotal    *prometheus.CounterVec
	eventsDroppedTotal    *prometheus.CounterVec
	listenerPanicsTotal   *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
}

var _ event.Metrics = (*Metrics)(nil)

// NewMetrics registers the purchases collectors against reg
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsDispatchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Total number of native events delivered to at least one listener.",
		}, []string{"event_class"}),

		listenerCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "listener_calls_total",
			Help:      "Total number of listener invocations.",
		}, []string{"event_class"}),

		eventsDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of native events that reached no listener.",
		}, []string{"event_class", "reason"}),

		listenerPanicsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "listener_panics_total",
			Help:      "Total number of recovered listener panics.",
		}, []string{"event_class"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the host.",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) RecordDispatch(class string, listeners int) {
	m.eventsDispatchedTotal.WithLabelValues(class).Inc()
	m.listenerCallsTotal.WithLabelValues(class).Add(float64(listeners))
}

func (m *Metrics) RecordDropped(class, reason string) {
	m.eventsDroppedTotal.WithLabelValues(class, reason).Inc()
}

func (m *Metrics) RecordListenerPanic(class string) {
	m.listenerPanicsTotal.WithLabelValues(class).Inc()
}

// RecordHTTPRequest records one completed request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records every request handled by the router. Unmatched routes
// share one label to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// DefaultMetrics returns a Metrics implementation using the default Prometheus registerer.
func DefaultMetrics(namespace string) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
