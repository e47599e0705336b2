// Package observability holds the Prometheus registry and OpenTelemetry
// wiring shared by the HTTP layer and the services.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK = "ok"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	durations       *prometheus.HistogramVec
	settlements     *prometheus.CounterVec
	settledValue    *prometheus.CounterVec
	feeValue        *prometheus.CounterVec
	refunds         *prometheus.CounterVec
	refundedValue   *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
}

// NewMetrics registers the ledger collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ledger"
	}
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		settledValue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settled_amount_total",
			Help:      "Base units settled, by operation.",
		}, []string{"operation"}),
		feeValue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_fee_amount_total",
			Help:      "Base units routed to platform holdings.",
		}, []string{"operation"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Refund attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		refundedValue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunded_amount_total",
			Help:      "Base units refunded, by kind.",
		}, []string{"kind"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Events an observer failed to accept.",
		}, []string{"publisher"}),
	}
	registry.MustRegister(
		m.requests, m.durations,
		m.settlements, m.settledValue, m.feeValue,
		m.refunds, m.refundedValue,
		m.publishFailures,
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Settlement records a settlement attempt. outcome is OutcomeOK or an error code.
func (m *Metrics) Settlement(operation, outcome string, amount, fee uint64) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(operation, outcome).Inc()
	if outcome == OutcomeOK {
		m.settledValue.WithLabelValues(operation).Add(float64(amount))
		m.feeValue.WithLabelValues(operation).Add(float64(fee))
	}
}

// Refund records a refund attempt.
func (m *Metrics) Refund(kind, outcome string, amount uint64) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeOK {
		m.refundedValue.WithLabelValues(kind).Add(float64(amount))
	}
}

// PublishFailed counts an event an observer did not accept.
func (m *Metrics) PublishFailed(publisher string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(publisher).Inc()
}
