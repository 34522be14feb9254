package push

import (
	"context"

	"askfan-notify/internal/common/logger"
)

// TokenLister yields the registered device tokens for a user.
type TokenLister interface {
	Tokens(ctx context.Context, userID string) ([]string, error)
}

// TopicManager subscribes token batches to a topic.
type TopicManager interface {
	SubscribeTokens(ctx context.Context, tokens []string, topic string) error
}

// TopicService subscribes all of a user's registered devices to the given
// topics. It satisfies the topic subscriber contract the notification
// manager's permission flow expects.
type TopicService struct {
	tokens TokenLister
	topics TopicManager
	logger logger.Logger
}

func NewTopicService(tokens TokenLister, topics TopicManager, log logger.Logger) *TopicService {
	return &TopicService{
		tokens: tokens,
		topics: topics,
		logger: log.WithFields(map[string]interface{}{"component": "topic-service"}),
	}
}

// SubscribeTopics subscribes every registered token to each topic. A user
// with no registered tokens yet is not an error; the next registration will
// resubscribe.
func (s *TopicService) SubscribeTopics(ctx context.Context, userID string, topics []string) error {
	tokens, err := s.tokens.Tokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		s.logger.Debug("no device tokens registered", map[string]interface{}{"userId": userID})
		return nil
	}

	for _, topic := range topics {
		if err := s.topics.SubscribeTokens(ctx, tokens, topic); err != nil {
			return err
		}
	}
	return nil
}
