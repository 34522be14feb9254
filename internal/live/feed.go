// Package live delivers store-change snapshots to connected clients.
package live

import (
	"context"
	"sync"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"

	"github.com/redis/go-redis/v9"
)

// Lister re-queries the store for the user's current matching set. Each feed
// event is turned into a full snapshot so subscribers diff against their own
// processed state instead of trusting event payloads.
type Lister func(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)

// Feed publishes and subscribes per-user change signals over Redis pub/sub.
type Feed struct {
	rdb           *redis.Client
	lister        Lister
	channelPrefix string
	batchLimit    int
	logger        logger.Logger
}

func NewFeed(rdb *redis.Client, lister Lister, channelPrefix string, batchLimit int, log logger.Logger) *Feed {
	return &Feed{
		rdb:           rdb,
		lister:        lister,
		channelPrefix: channelPrefix,
		batchLimit:    batchLimit,
		logger:        log.WithFields(map[string]interface{}{"component": "live-feed"}),
	}
}

func (f *Feed) channel(userID string) string {
	return f.channelPrefix + userID
}

// Publish signals that the user's notification set changed. The payload is
// deliberately empty: subscribers re-query the store.
func (f *Feed) Publish(ctx context.Context, userID string) error {
	return f.rdb.Publish(ctx, f.channel(userID), "changed").Err()
}

// Subscribe attaches a live subscription for the user. Every published change
// yields a fresh snapshot of the user's current matching set on the returned
// channel. The subscription stays attached until ctx is cancelled or
// unsubscribe is called; the snapshot channel is closed on teardown.
func (f *Feed) Subscribe(ctx context.Context, userID string) (<-chan []models.NotificationRecord, func(), error) {
	sub := f.rdb.Subscribe(ctx, f.channel(userID))

	// Force the SUBSCRIBE round trip so no publish between attach and first
	// receive is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	snapshots := make(chan []models.NotificationRecord, 1)
	done := make(chan struct{})

	go func() {
		defer close(snapshots)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				records, err := f.lister(ctx, userID, f.batchLimit)
				if err != nil {
					f.logger.Warn("snapshot query failed", map[string]interface{}{
						"userId": userID,
						"error":  err,
					})
					continue
				}
				select {
				case snapshots <- records:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	return snapshots, unsubscribe, nil
}
