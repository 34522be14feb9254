package push

import (
	"context"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"
)

// Sender pushes one record to one device token.
type Sender interface {
	Send(ctx context.Context, token string, rec models.NotificationRecord) error
}

// Dispatcher fans one notification record out to every device a user has
// registered. Per-token failures are logged and skipped so one stale token
// never blocks the others.
type Dispatcher struct {
	tokens TokenLister
	sender Sender
	logger logger.Logger
}

func NewDispatcher(tokens TokenLister, sender Sender, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		tokens: tokens,
		sender: sender,
		logger: log.WithFields(map[string]interface{}{"component": "push-dispatcher"}),
	}
}

// SendToUser pushes the record to all of the user's registered devices.
// Returns an error only when the token lookup itself fails; individual send
// failures are logged.
func (d *Dispatcher) SendToUser(ctx context.Context, rec models.NotificationRecord) error {
	tokens, err := d.tokens.Tokens(ctx, rec.UserID)
	if err != nil {
		return err
	}

	for _, token := range tokens {
		if err := d.sender.Send(ctx, token, rec); err != nil {
			d.logger.Warn("push to device failed", map[string]interface{}{
				"userId":   rec.UserID,
				"sourceId": rec.SourceID,
				"error":    err,
			})
		}
	}
	return nil
}
