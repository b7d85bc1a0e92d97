package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PositionsReceived counts fixes delivered by the position providers
	PositionsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "location_agent",
			Name:      "positions_received_total",
			Help:      "Total number of position fixes received from providers",
		},
		[]string{"source"},
	)

	// SubscriberNotifications counts position deliveries to subscriber handlers
	SubscriberNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "location_agent",
			Name:      "subscriber_notifications_total",
			Help:      "Total number of position notifications delivered to subscribers",
		},
	)

	// SubscriberPanics counts subscriber handlers that panicked during delivery
	SubscriberPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "location_agent",
			Name:      "subscriber_panics_total",
			Help:      "Total number of recovered panics in subscriber handlers",
		},
	)

	// WatchErrors counts watch delivery failures by error kind
	WatchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "location_agent",
			Name:      "watch_errors_total",
			Help:      "Total number of position watch errors",
		},
		[]string{"kind"},
	)

	// BackendRequests counts backend operations by outcome
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "location_agent",
			Name:      "backend_requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"op", "status"},
	)

	// StreamClients tracks currently connected websocket stream clients
	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "location_agent",
			Name:      "stream_clients",
			Help:      "Number of connected websocket stream clients",
		},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(PositionsReceived)
		prometheus.DefaultRegisterer.Register(SubscriberNotifications)
		prometheus.DefaultRegisterer.Register(SubscriberPanics)
		prometheus.DefaultRegisterer.Register(WatchErrors)
		prometheus.DefaultRegisterer.Register(BackendRequests)
		prometheus.DefaultRegisterer.Register(StreamClients)
	})
}
