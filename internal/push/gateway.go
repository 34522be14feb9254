// Package push sends notifications through Firebase Cloud Messaging and
// manages device token registrations.
package push

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
	"askfan-notify/internal/models"
)

// Messenger is the slice of the FCM client the gateway uses. Satisfied by
// *messaging.Client.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Gateway delivers notifications to device tokens. Sends are best effort from
// the caller's perspective: the notification record is already persisted
// before a push is attempted, so a failed push only delays visibility until
// the next batch load.
type Gateway struct {
	client Messenger
	logger logger.Logger
}

// NewGateway initializes the Firebase app from a service account credentials
// file and returns a messaging gateway.
func NewGateway(ctx context.Context, credentialsFile string, log logger.Logger) (*Gateway, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("firebase credentials file not configured")
	}
	if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsFile)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return NewGatewayWithMessenger(client, log), nil
}

// NewGatewayWithMessenger wires a gateway over an existing messenger. Used by
// tests and by callers that manage the Firebase app themselves.
func NewGatewayWithMessenger(client Messenger, log logger.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "push-gateway"}),
	}
}

// Send pushes a notification record to one device token. The data payload
// carries the source correlation so a foreground client can run the same
// de-duplication it applies to store records.
func (g *Gateway) Send(ctx context.Context, token string, rec models.NotificationRecord) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: rec.Title,
			Body:  rec.Message,
		},
		Data: payloadData(rec),
	}

	id, err := g.client.Send(ctx, msg)
	if err != nil {
		metrics.PushSends.WithLabelValues("error").Inc()
		return apperrors.NewPushSendFailedError(err)
	}

	metrics.PushSends.WithLabelValues("success").Inc()
	g.logger.Debug("push sent", map[string]interface{}{
		"messageId": id,
		"userId":    rec.UserID,
		"sourceId":  rec.SourceID,
	})
	return nil
}

// SendToTopic pushes a notification record to a topic.
func (g *Gateway) SendToTopic(ctx context.Context, topic string, rec models.NotificationRecord) error {
	msg := &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: rec.Title,
			Body:  rec.Message,
		},
		Data: payloadData(rec),
	}

	if _, err := g.client.Send(ctx, msg); err != nil {
		metrics.PushSends.WithLabelValues("error").Inc()
		return apperrors.NewPushSendFailedError(err)
	}
	metrics.PushSends.WithLabelValues("success").Inc()
	return nil
}

// SubscribeTokens subscribes device tokens to a topic. Partial failures are
// reported in the response; only a transport level failure returns an error.
func (g *Gateway) SubscribeTokens(ctx context.Context, tokens []string, topic string) error {
	if len(tokens) == 0 {
		return nil
	}
	resp, err := g.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return apperrors.NewPushSubscribeFailedError(err)
	}
	if resp.FailureCount > 0 {
		g.logger.Warn("topic subscription partially failed", map[string]interface{}{
			"topic":        topic,
			"successCount": resp.SuccessCount,
			"failureCount": resp.FailureCount,
		})
	}
	return nil
}

func payloadData(rec models.NotificationRecord) map[string]string {
	data := map[string]string{"kind": string(rec.Kind)}
	if rec.SourceID != "" {
		data["sourceId"] = rec.SourceID
	}
	if rec.SourceType != "" {
		data["sourceType"] = rec.SourceType
	}
	return data
}
