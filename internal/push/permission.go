package push

import (
	"context"
	"errors"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
)

// ErrPermissionDenied is returned by a TokenSource when the platform prompt
// was answered with an explicit denial rather than failing.
var ErrPermissionDenied = errors.New("notification permission denied")

// TokenSource runs the platform permission prompt and yields the device
// registration token on grant.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Registrar records a granted device token with the relay.
type Registrar interface {
	RegisterToken(ctx context.Context, userID, token string) error
}

// PermissionClient drives the permission prompt and token registration. It
// satisfies the permission contract the notification manager expects: an
// explicit denial is a non-error outcome, everything else that goes wrong is
// an error the manager converts into a local error notification.
type PermissionClient struct {
	source    TokenSource
	registrar Registrar
	logger    logger.Logger
}

func NewPermissionClient(source TokenSource, registrar Registrar, log logger.Logger) *PermissionClient {
	return &PermissionClient{
		source:    source,
		registrar: registrar,
		logger:    log.WithFields(map[string]interface{}{"component": "push-permission"}),
	}
}

func (c *PermissionClient) Request(ctx context.Context, userID string) (bool, error) {
	token, err := c.source.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			c.logger.Info("notification permission denied", map[string]interface{}{"userId": userID})
			return false, nil
		}
		return false, apperrors.NewPermissionFailedError(err)
	}

	if err := c.registrar.RegisterToken(ctx, userID, token); err != nil {
		return false, apperrors.NewPermissionFailedError(err)
	}
	return true, nil
}
