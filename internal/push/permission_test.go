package push

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
)

type mockTokenSource struct {
	token string
	err   error
}

func (m *mockTokenSource) Token(ctx context.Context) (string, error) {
	return m.token, m.err
}

type mockRegistrar struct {
	userID string
	token  string
	err    error
	calls  int
}

func (m *mockRegistrar) RegisterToken(ctx context.Context, userID, token string) error {
	m.calls++
	m.userID = userID
	m.token = token
	return m.err
}

func TestPermissionClient_Granted(t *testing.T) {
	reg := &mockRegistrar{}
	c := NewPermissionClient(&mockTokenSource{token: "token-1"}, reg, logger.NewTestLogger(t))

	granted, err := c.Request(context.Background(), "user-1")

	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, "user-1", reg.userID)
	assert.Equal(t, "token-1", reg.token)
}

func TestPermissionClient_DeniedIsNotAnError(t *testing.T) {
	reg := &mockRegistrar{}
	c := NewPermissionClient(&mockTokenSource{err: ErrPermissionDenied}, reg, logger.NewTestLogger(t))

	granted, err := c.Request(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, granted)
	assert.Zero(t, reg.calls)
}

func TestPermissionClient_TokenFailure(t *testing.T) {
	c := NewPermissionClient(&mockTokenSource{err: errors.New("service worker missing")}, &mockRegistrar{}, logger.NewTestLogger(t))

	granted, err := c.Request(context.Background(), "user-1")

	require.Error(t, err)
	assert.False(t, granted)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodePermissionFailed, stdErr.Code)
}

func TestPermissionClient_RegistrationFailure(t *testing.T) {
	reg := &mockRegistrar{err: errors.New("relay unavailable")}
	c := NewPermissionClient(&mockTokenSource{token: "token-1"}, reg, logger.NewTestLogger(t))

	granted, err := c.Request(context.Background(), "user-1")

	require.Error(t, err)
	assert.False(t, granted)
}

type mockTokenLister struct {
	tokens []string
	err    error
}

func (m *mockTokenLister) Tokens(ctx context.Context, userID string) ([]string, error) {
	return m.tokens, m.err
}

type mockTopicManager struct {
	calls map[string][]string
	err   error
}

func (m *mockTopicManager) SubscribeTokens(ctx context.Context, tokens []string, topic string) error {
	if m.calls == nil {
		m.calls = make(map[string][]string)
	}
	m.calls[topic] = tokens
	return m.err
}

func TestTopicService_SubscribesAllTokensToAllTopics(t *testing.T) {
	topics := &mockTopicManager{}
	s := NewTopicService(&mockTokenLister{tokens: []string{"t-1", "t-2"}}, topics, logger.NewTestLogger(t))

	err := s.SubscribeTopics(context.Background(), "user-1", []string{"new-questions", "answers"})

	require.NoError(t, err)
	assert.Equal(t, []string{"t-1", "t-2"}, topics.calls["new-questions"])
	assert.Equal(t, []string{"t-1", "t-2"}, topics.calls["answers"])
}

func TestTopicService_NoTokensIsNotAnError(t *testing.T) {
	topics := &mockTopicManager{}
	s := NewTopicService(&mockTokenLister{}, topics, logger.NewTestLogger(t))

	require.NoError(t, s.SubscribeTopics(context.Background(), "user-1", []string{"new-questions"}))
	assert.Empty(t, topics.calls)
}

func TestTopicService_SubscribeFailurePropagates(t *testing.T) {
	topics := &mockTopicManager{err: errors.New("fcm unavailable")}
	s := NewTopicService(&mockTokenLister{tokens: []string{"t-1"}}, topics, logger.NewTestLogger(t))

	require.Error(t, s.SubscribeTopics(context.Background(), "user-1", []string{"new-questions"}))
}
