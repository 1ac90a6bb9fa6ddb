// Package metrics provides Prometheus metrics for the gateway daemon.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can be constructed without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	generation   prometheus.Gauge
	subscribers  prometheus.Gauge
	connectivity prometheus.Gauge
	syncSessions *prometheus.CounterVec
}

// New creates the daemon metrics and registers them with registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewayd_collection_generation",
				Help: "Generation of the active parcel collection subprocess",
			},
		),
		subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewayd_status_subscribers",
				Help: "Number of live connectivity status subscriptions",
			},
		),
		connectivity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatewayd_connectivity_status",
				Help: "Last reported upstream connectivity (1 = connected, 0 = disconnected)",
			},
		),
		syncSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatewayd_courier_sync_sessions_total",
				Help: "Courier sync sessions by close code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.generation,
		m.subscribers,
		m.connectivity,
		m.syncSessions,
	)

	return m
}

func (m *Metrics) SetGeneration(generation uint64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(generation))
}

func (m *Metrics) SetSubscribers(count int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(count))
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connectivity.Set(1)
	} else {
		m.connectivity.Set(0)
	}
}

func (m *Metrics) ObserveSyncSession(closeCode int) {
	if m == nil {
		return
	}
	m.syncSessions.WithLabelValues(strconv.Itoa(closeCode)).Inc()
}

// Handler exposes the metrics gathered by gatherer over http.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
