package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat metrics for monitoring message lifecycle and real-time delivery
var (
	// WebSocket lifecycle
	WebSocketConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_websocket_connections_active",
		Help: "Current number of live WebSocket connections",
	})

	WebSocketConnectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_websocket_connection_total",
		Help: "Total number of WebSocket connection attempts",
	}, []string{"status"}) // "accepted", "rejected"

	// Message lifecycle
	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of messages accepted by the send pipeline",
	}, []string{"conversation_type"}) // "direct", "group"

	MessagesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_delivered_total",
		Help: "Total number of per-connection message deliveries",
	})

	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_dropped_total",
		Help: "Total number of payloads dropped to clients",
	}, []string{"reason"}) // "buffer_full", "closed"

	// Translation lifecycle
	TranslationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_translations_total",
		Help: "Total number of translation attempts by outcome",
	}, []string{"status"}) // "translated", "failed", "skipped"

	TranslationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_translation_duration_seconds",
		Help:    "Time taken by the translation backend",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Presence
	PresenceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_presence_transitions_total",
		Help: "Total number of user online/offline transitions",
	}, []string{"state"}) // "online", "offline"
)
