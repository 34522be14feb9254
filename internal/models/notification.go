package models

import "time"

// Kind classifies a notification for rendering and template selection.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// Source types correlate a notification to the event that produced it.
const (
	SourceTypeNewQuestion      = "new-question"
	SourceTypeQuestionAnswered = "question-answered"
	SourceTypePushSubscribed   = "push-subscribed"
)

// NotificationRecord is the persisted shape of a notification. Created by the
// relay on a triggering event, mutated (seen/delivered) by the client or a
// relay call, never deleted in normal flow.
type NotificationRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Kind       Kind      `json:"kind"`
	SourceID   string    `json:"sourceId,omitempty"`
	SourceType string    `json:"sourceType,omitempty"`
	Seen       bool      `json:"seen"`
	Delivered  bool      `json:"delivered"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ClientNotification is the canonical in-memory projection every input
// channel (batch load, live snapshot, push event, local synthesis) is
// normalized into before de-duplication runs. Local entries never reach the
// store and disappear on dismissal.
type ClientNotification struct {
	LocalID    string    `json:"localId"`
	RecordID   string    `json:"recordId,omitempty"`
	SourceID   string    `json:"sourceId,omitempty"`
	SourceType string    `json:"sourceType,omitempty"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Kind       Kind      `json:"kind"`
	Seen       bool      `json:"seen"`
	Local      bool      `json:"local"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromPush normalizes a push message received in the foreground. Malformed
// data falls back to an info notification without source correlation.
func FromPush(title, message string, data map[string]string) ClientNotification {
	n := ClientNotification{
		Title:     title,
		Message:   message,
		Kind:      Kind(data["kind"]),
		CreatedAt: time.Now().UTC(),
	}
	if !n.Kind.Valid() {
		n.Kind = KindInfo
	}
	n.SourceID = data["sourceId"]
	n.SourceType = data["sourceType"]
	return n
}

// FromRecord projects a stored record into the client shape.
func FromRecord(rec NotificationRecord) ClientNotification {
	return ClientNotification{
		RecordID:   rec.ID,
		SourceID:   rec.SourceID,
		SourceType: rec.SourceType,
		Title:      rec.Title,
		Message:    rec.Message,
		Kind:       rec.Kind,
		Seen:       rec.Seen,
		CreatedAt:  rec.CreatedAt,
	}
}
