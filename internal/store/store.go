// Package store persists notification records.
package store

import (
	"context"

	"askfan-notify/internal/models"
)

// Store is the persistence boundary the relay and the notification manager
// talk to. Implementations live in this package (Postgres).
type Store interface {
	// Create inserts a new record with seen=false, delivered=false and
	// returns the generated id.
	Create(ctx context.Context, rec *models.NotificationRecord) (string, error)

	// ListByUser returns the user's records ordered by createdAt descending,
	// limited to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)

	// MarkSeen flips a single record's seen flag to true. Idempotent.
	MarkSeen(ctx context.Context, id string) error

	// MarkDelivered flips a single record's delivered flag to true. Idempotent.
	MarkDelivered(ctx context.Context, id string) error

	// MarkSeenBySource marks all of the user's records carrying sourceID as
	// seen and returns the number of rows updated. Fallback path for clients
	// that only know the source id.
	MarkSeenBySource(ctx context.Context, userID, sourceID string) (int64, error)

	// UnseenCount returns the number of unseen records for the user.
	UnseenCount(ctx context.Context, userID string) (int64, error)
}
