package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_notifications_created_total",
			Help: "Total number of notification records written by the relay",
		},
		[]string{"kind"},
	)

	PushSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_push_sends_total",
			Help: "Total number of push send attempts",
		},
		[]string{"status"},
	)

	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_duplicates_suppressed_total",
			Help: "Events discarded because their source id was already tracked",
		},
	)

	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_best_effort_failures_total",
			Help: "Fire-and-forget writes that failed (logged, never retried)",
		},
		[]string{"op"},
	)

	QueueMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_queue_messages_consumed_total",
			Help: "Delivery jobs consumed from the outbound queue",
		},
		[]string{"channel", "status"},
	)

	RelayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notify_relay_request_duration_seconds",
			Help: "Duration of relay HTTP request handling in seconds",
		},
		[]string{"route"},
	)
)
