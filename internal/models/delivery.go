package models

import "time"

// Delivery channels for the outbound queue.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Delivery priorities. SMS relays only fire for high priority jobs.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// DeliveryJob is the envelope the relay enqueues and the queue relay
// batch-consumes. One job targets one user on one channel.
type DeliveryJob struct {
	JobID      string                 `json:"jobId"`
	Channel    string                 `json:"channel"`
	UserID     string                 `json:"userId"`
	Kind       Kind                   `json:"kind"`
	SourceID   string                 `json:"sourceId,omitempty"`
	SourceType string                 `json:"sourceType,omitempty"`
	Priority   string                 `json:"priority"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	EnqueuedAt time.Time              `json:"enqueuedAt"`
}

// Delivery statuses reported by the queue relay.
const (
	DeliveryStatusSent    = "sent"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusSkipped = "skipped"
)
