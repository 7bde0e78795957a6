package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns              *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
	classifierFailures *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	orders             *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storebuddy_turns_total",
				Help: "Total number of resolved chat turns",
			},
			[]string{"intent"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storebuddy_turn_duration_seconds",
				Help:    "Duration of chat turns from receipt to reply",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"intent"},
		),
		classifierFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storebuddy_classifier_failures_total",
				Help: "Classifier calls that failed or returned malformed output",
			},
			[]string{"reason"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storebuddy_active_sessions",
				Help: "Number of open chat sessions",
			},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storebuddy_orders_total",
				Help: "Order attempts by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.classifierFailures,
		m.activeSessions,
		m.orders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(intent string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent).Inc()
	m.turnDuration.WithLabelValues(intent).Observe(elapsed.Seconds())
}

func (m *Metrics) ClassifierFailure(reason string) {
	if m == nil {
		return
	}
	m.classifierFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// Order results.
const (
	OrderPlaced       = "placed"
	OrderInsufficient = "insufficient_stock"
	OrderNotFound     = "not_found"
	OrderFailed       = "failed"
)

func (m *Metrics) ObserveOrder(result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(result).Inc()
}
