package store

import (
	"context"
	"database/sql"
	"time"

	"askfan-notify/internal/models"

	"github.com/google/uuid"
)

// Schema:
//
//	CREATE TABLE notifications (
//	    id          UUID PRIMARY KEY,
//	    user_id     TEXT NOT NULL,
//	    title       TEXT NOT NULL,
//	    message     TEXT NOT NULL,
//	    kind        TEXT NOT NULL,
//	    source_id   TEXT NOT NULL DEFAULT '',
//	    source_type TEXT NOT NULL DEFAULT '',
//	    seen        BOOLEAN NOT NULL DEFAULT FALSE,
//	    delivered   BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_notifications_user_created ON notifications (user_id, created_at DESC);
//	CREATE INDEX idx_notifications_user_source ON notifications (user_id, source_id) WHERE source_id <> '';

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.NotificationRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Seen = false
	rec.Delivered = false

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, title, message, kind, source_id, source_type, seen, delivered, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, $8)`,
		rec.ID, rec.UserID, rec.Title, rec.Message, string(rec.Kind), rec.SourceID, rec.SourceType, rec.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, message, kind, source_id, source_type, seen, delivered, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Message, &kind,
			&rec.SourceID, &rec.SourceType, &rec.Seen, &rec.Delivered, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = models.Kind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) MarkSeen(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET seen = TRUE WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET delivered = TRUE WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) MarkSeenBySource(ctx context.Context, userID, sourceID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET seen = TRUE WHERE user_id = $1 AND source_id = $2 AND seen = FALSE`,
		userID, sourceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) UnseenCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND seen = FALSE`,
		userID).Scan(&count)
	return count, err
}
