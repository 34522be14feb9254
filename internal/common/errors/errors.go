// Package errors provides standardized error handling for the notification pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Permission errors: surfaced to the user exactly once, never retried.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodePermissionFailed ErrorCode = "PERMISSION_REQUEST_FAILED"

	// Transport errors: push subscribe/send failures. Logged only; the store
	// write is the fallback delivery path.
	ErrCodePushSendFailed      ErrorCode = "PUSH_SEND_FAILED"
	ErrCodePushSubscribeFailed ErrorCode = "PUSH_SUBSCRIBE_FAILED"

	// Persistence errors: best-effort acknowledgement writes. Logged only;
	// local state is already advanced optimistically.
	ErrCodeMarkSeenFailed      ErrorCode = "MARK_SEEN_FAILED"
	ErrCodeMarkDeliveredFailed ErrorCode = "MARK_DELIVERED_FAILED"

	ErrCodeNotificationWriteFailed ErrorCode = "NOTIFICATION_WRITE_FAILED"
	ErrCodeNotificationNotFound    ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidPayload          ErrorCode = "INVALID_PAYLOAD"
	ErrCodeRecipientNotFound       ErrorCode = "RECIPIENT_NOT_FOUND"

	ErrCodeQueueReceiveFailed ErrorCode = "QUEUE_RECEIVE_FAILED"
	ErrCodeEmailSendFailed    ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeSMSSendFailed      ErrorCode = "SMS_SEND_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeFeedPublishFailed        ErrorCode = "FEED_PUBLISH_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewPermissionDeniedError creates a non-retryable permission error.
func NewPermissionDeniedError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "Notification permission denied",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPermissionFailedError creates a non-retryable permission request error.
func NewPermissionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionFailed,
		Message:   "Notification permission request failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSendFailedError creates a push transport error. Retryable in
// principle, but delivery policy is log-only: the store write is the
// fallback path.
func NewPushSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSendFailed,
		Message:   "Push message send failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSubscribeFailedError creates a topic subscription error.
func NewPushSubscribeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSubscribeFailed,
		Message:   "Push topic subscription failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMarkSeenFailedError creates a best-effort mark-seen persistence error.
func NewMarkSeenFailedError(id string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarkSeenFailed,
		Message:   "Mark-seen write failed",
		Details:   fmt.Sprintf("id: %s, error: %s", id, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMarkDeliveredFailedError creates a best-effort mark-delivered persistence error.
func NewMarkDeliveredFailedError(id string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarkDeliveredFailed,
		Message:   "Mark-delivered write failed",
		Details:   fmt.Sprintf("id: %s, error: %s", id, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationWriteFailedError creates a retryable store insert error.
func NewNotificationWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationWriteFailed,
		Message:   "Notification record write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError creates a non-retryable lookup error.
func NewNotificationNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationNotFound,
		Message:   "Notification record not found",
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPayloadError creates a non-retryable request validation error.
func NewInvalidPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPayload,
		Message:   "Invalid notification payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientNotFoundError creates a non-retryable recipient lookup error.
func NewRecipientNotFoundError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientNotFound,
		Message:   "Recipient contact not found",
		Details:   fmt.Sprintf("userId: %s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueReceiveFailedError creates a retryable queue consume error.
func NewQueueReceiveFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueReceiveFailed,
		Message:   "Queue receive failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable email relay error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Email relay send failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSMSSendFailedError creates a retryable SMS relay error.
func NewSMSSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSMSSendFailed,
		Message:   "SMS relay send failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedPublishFailedError creates a live-feed publish error. Logged only:
// subscribers recover on their next snapshot.
func NewFeedPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedPublishFailed,
		Message:   "Live feed publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether the error carries a retryable code. The queue
// relay uses it to decide whether a message is deleted or left for
// redelivery; best-effort callers only log.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// Category returns the coarse failure bucket for an error code.
func Category(code ErrorCode) string {
	switch code {
	case ErrCodePermissionDenied, ErrCodePermissionFailed:
		return "PERMISSION"
	case ErrCodePushSendFailed, ErrCodePushSubscribeFailed,
		ErrCodeEmailSendFailed, ErrCodeSMSSendFailed:
		return "TRANSPORT"
	case ErrCodeMarkSeenFailed, ErrCodeMarkDeliveredFailed,
		ErrCodeNotificationWriteFailed, ErrCodeDatabaseConnectionFailed:
		return "PERSISTENCE"
	default:
		return "OTHER"
	}
}
