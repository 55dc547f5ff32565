// Package metrics exposes client-side Prometheus metrics for the watch daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	streamMessages   *prometheus.CounterVec
	streamReconnects prometheus.Counter
	streamConnected  prometheus.Gauge
	storeDispatches  *prometheus.CounterVec
}

// New registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumictl_api_requests_total",
			Help: "API requests by method and response status (0 = transport error).",
		}, []string{"method", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lumictl_api_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumictl_stream_messages_total",
			Help: "Live stream messages by result (ok, dropped).",
		}, []string{"result"}),
		streamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumictl_stream_reconnects_total",
			Help: "Stream connection attempts after the first.",
		}),
		streamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lumictl_stream_connected",
			Help: "Number of live streams currently connected.",
		}),
		storeDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumictl_store_dispatches_total",
			Help: "Store dispatches by store, action kind and whether the state changed.",
		}, []string{"store", "kind", "changed"}),
	}

	m.registry.MustRegister(
		m.apiRequests,
		m.apiDuration,
		m.streamMessages,
		m.streamReconnects,
		m.streamConnected,
		m.storeDispatches,
	)
	return m
}

// ObserveRequest matches api.Observer.
func (m *Metrics) ObserveRequest(method, _ string, status int, elapsed time.Duration) {
	m.apiRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveMessage counts one stream message; err is the parse error of a dropped message.
func (m *Metrics) ObserveMessage(err error) {
	if err != nil {
		m.streamMessages.WithLabelValues("dropped").Inc()
		return
	}
	m.streamMessages.WithLabelValues("ok").Inc()
}

// StreamReconnecting counts a reconnect attempt.
func (m *Metrics) StreamReconnecting() {
	m.streamReconnects.Inc()
}

// StreamConnected adjusts the connected stream gauge.
func (m *Metrics) StreamConnected(up bool) {
	if up {
		m.streamConnected.Inc()
	} else {
		m.streamConnected.Dec()
	}
}

// ObserveDispatch matches the store dispatch hook.
func (m *Metrics) ObserveDispatch(store, kind string, changed bool) {
	m.storeDispatches.WithLabelValues(store, kind, strconv.FormatBool(changed)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
