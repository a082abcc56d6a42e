package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillswap_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Negotiation metrics
	RequestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_service_requests_created_total",
			Help: "Total service requests created",
		},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_request_transitions_total",
			Help: "Lifecycle transition attempts by outcome",
		},
		[]string{"action", "outcome"}, // outcome: "applied", "noop", "rejected", "lost_race"
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_messages_appended_total",
			Help: "Total chat messages stored",
		},
	)

	// Realtime metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skillswap_ws_connections",
			Help: "Open realtime connections",
		},
	)

	RoomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_room_events_total",
			Help: "Events relayed to rooms",
		},
		[]string{"type"},
	)

	DroppedClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillswap_ws_dropped_clients_total",
			Help: "Connections dropped because their send queue was full",
		},
	)

	// Notifications
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillswap_notifications_total",
			Help: "Telegram notifications by result",
		},
		[]string{"kind", "result"},
	)
)
