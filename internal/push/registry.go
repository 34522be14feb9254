package push

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"askfan-notify/internal/common/logger"
)

// TokenRegistry keeps the set of registered device tokens per user in Redis.
// Tokens accumulate across devices and browsers; FCM invalidates stale ones
// on its side, so the registry never expires entries itself.
type TokenRegistry struct {
	rdb       *redis.Client
	keyPrefix string
	logger    logger.Logger
}

func NewTokenRegistry(rdb *redis.Client, keyPrefix string, log logger.Logger) *TokenRegistry {
	return &TokenRegistry{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		logger:    log.WithFields(map[string]interface{}{"component": "token-registry"}),
	}
}

func (r *TokenRegistry) key(userID string) string {
	return r.keyPrefix + userID
}

// Register stores a device token for the user. Re-registering an existing
// token is a no-op.
func (r *TokenRegistry) Register(ctx context.Context, userID, token string) error {
	if token == "" {
		return fmt.Errorf("empty device token")
	}
	if err := r.rdb.SAdd(ctx, r.key(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

// Remove drops a device token, typically after FCM reports it unregistered.
func (r *TokenRegistry) Remove(ctx context.Context, userID, token string) error {
	if err := r.rdb.SRem(ctx, r.key(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}
	return nil
}

// Tokens returns all registered device tokens for the user.
func (r *TokenRegistry) Tokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := r.rdb.SMembers(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	return tokens, nil
}
