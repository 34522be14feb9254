package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"
)

type mockStore struct {
	createErr error
	createdID string
	created   *models.NotificationRecord

	records []models.NotificationRecord
	listErr error
	gotUser string
	gotLim  int

	seenIDs      []string
	deliveredIDs []string
	markSeenErr  error

	sourceUser  string
	sourceID    string
	sourceCount int64

	unseenCount int64
}

func (m *mockStore) Create(ctx context.Context, rec *models.NotificationRecord) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = rec
	if m.createdID == "" {
		m.createdID = "n-1"
	}
	return m.createdID, nil
}

func (m *mockStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	m.gotUser = userID
	m.gotLim = limit
	return m.records, m.listErr
}

func (m *mockStore) MarkSeen(ctx context.Context, id string) error {
	m.seenIDs = append(m.seenIDs, id)
	return m.markSeenErr
}

func (m *mockStore) MarkDelivered(ctx context.Context, id string) error {
	m.deliveredIDs = append(m.deliveredIDs, id)
	return nil
}

func (m *mockStore) MarkSeenBySource(ctx context.Context, userID, sourceID string) (int64, error) {
	m.sourceUser = userID
	m.sourceID = sourceID
	return m.sourceCount, nil
}

func (m *mockStore) UnseenCount(ctx context.Context, userID string) (int64, error) {
	return m.unseenCount, nil
}

type mockFeed struct {
	published []string
	err       error
}

func (m *mockFeed) Publish(ctx context.Context, userID string) error {
	m.published = append(m.published, userID)
	return m.err
}

type mockPush struct {
	sent []models.NotificationRecord
	err  error
}

func (m *mockPush) SendToUser(ctx context.Context, rec models.NotificationRecord) error {
	m.sent = append(m.sent, rec)
	return m.err
}

type mockQueue struct {
	jobs []models.DeliveryJob
	err  error
}

func (m *mockQueue) Enqueue(ctx context.Context, job models.DeliveryJob) error {
	m.jobs = append(m.jobs, job)
	return m.err
}

type mockRegistry struct {
	userID string
	token  string
	err    error
}

func (m *mockRegistry) Register(ctx context.Context, userID, token string) error {
	m.userID = userID
	m.token = token
	return m.err
}

type handlerFixture struct {
	echo     *echo.Echo
	store    *mockStore
	feed     *mockFeed
	push     *mockPush
	queue    *mockQueue
	registry *mockRegistry
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		echo:     echo.New(),
		store:    &mockStore{},
		feed:     &mockFeed{},
		push:     &mockPush{},
		queue:    &mockQueue{},
		registry: &mockRegistry{},
	}
	f.echo.Validator = NewValidator()
	h := NewHandler(f.store, f.feed, f.push, f.queue, f.registry, 50, logger.NewTestLogger(t))
	h.RegisterRoutes(f.echo.Group("/api"))
	return f
}

func (f *handlerFixture) request(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestCreateNotification(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications", `{
		"userId": "user-1",
		"title": "New question",
		"message": "Someone asked you a question",
		"kind": "info",
		"sourceId": "q-1",
		"sourceType": "new-question",
		"channels": ["email", "sms"],
		"priority": "high"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "n-1", resp["id"])

	require.NotNil(t, f.store.created)
	assert.Equal(t, "user-1", f.store.created.UserID)
	assert.Equal(t, models.KindInfo, f.store.created.Kind)
	assert.Equal(t, []string{"user-1"}, f.feed.published)
	require.Len(t, f.push.sent, 1)
	assert.Equal(t, "q-1", f.push.sent[0].SourceID)

	require.Len(t, f.queue.jobs, 2)
	assert.Equal(t, models.ChannelEmail, f.queue.jobs[0].Channel)
	assert.Equal(t, models.ChannelSMS, f.queue.jobs[1].Channel)
	assert.Equal(t, models.PriorityHigh, f.queue.jobs[0].Priority)
	assert.Equal(t, "New question", f.queue.jobs[0].Metadata["title"])
	assert.NotEmpty(t, f.queue.jobs[0].JobID)
}

func TestCreateNotification_MissingUserID(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications", `{"title": "t", "message": "m"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.store.created)
}

func TestCreateNotification_InvalidKind(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications",
		`{"userId": "user-1", "title": "t", "message": "m", "kind": "fancy"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateNotification_StoreFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.createErr = errors.New("connection refused")

	rec := f.request(http.MethodPost, "/api/notifications",
		`{"userId": "user-1", "title": "t", "message": "m"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, f.feed.published, "nothing fans out when the write failed")
	assert.Empty(t, f.push.sent)
}

func TestCreateNotification_PushFailureStillCreated(t *testing.T) {
	f := newHandlerFixture(t)
	f.push.err = errors.New("fcm unavailable")
	f.feed.err = errors.New("redis down")

	rec := f.request(http.MethodPost, "/api/notifications",
		`{"userId": "user-1", "title": "t", "message": "m"}`)

	assert.Equal(t, http.StatusCreated, rec.Code, "fan-out is best effort")
}

func TestCreateNotification_DefaultsKindAndPriority(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications",
		`{"userId": "user-1", "title": "t", "message": "m", "channels": ["email"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.KindInfo, f.store.created.Kind)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, models.PriorityNormal, f.queue.jobs[0].Priority)
}

func TestListNotifications(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.records = []models.NotificationRecord{
		{ID: "n-2", UserID: "user-1", Title: "b", CreatedAt: time.Now().UTC()},
		{ID: "n-1", UserID: "user-1", Title: "a", CreatedAt: time.Now().UTC().Add(-time.Hour)},
	}

	rec := f.request(http.MethodGet, "/api/notifications?userId=user-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.NotificationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "n-2", resp[0].ID)
	assert.Equal(t, 50, f.store.gotLim)
}

func TestListNotifications_EmptyIsArray(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodGet, "/api/notifications?userId=user-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListNotifications_MissingUserID(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodGet, "/api/notifications", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotifications_LimitClamped(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodGet, "/api/notifications?userId=user-1&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, f.store.gotLim)

	rec = f.request(http.MethodGet, "/api/notifications?userId=user-1&limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, f.store.gotLim, "limit never exceeds the configured batch size")

	rec = f.request(http.MethodGet, "/api/notifications?userId=user-1&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnseenCount(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.unseenCount = 3

	rec := f.request(http.MethodGet, "/api/notifications/unseen-count?userId=user-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp["count"])
}

func TestMarkSeen(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPut, "/api/notifications/n-1/seen", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n-1"}, f.store.seenIDs)
}

func TestMarkSeen_StoreFailure(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.markSeenErr = errors.New("connection refused")

	rec := f.request(http.MethodPut, "/api/notifications/n-1/seen", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMarkDelivered(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPut, "/api/notifications/n-1/delivered", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n-1"}, f.store.deliveredIDs)
}

func TestMarkSeenBySource(t *testing.T) {
	f := newHandlerFixture(t)
	f.store.sourceCount = 2

	rec := f.request(http.MethodPost, "/api/notifications/seen-by-source",
		`{"userId": "user-1", "sourceId": "q-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", f.store.sourceUser)
	assert.Equal(t, "q-1", f.store.sourceID)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["success"])
}

func TestMarkSeenBySource_RecordIDWins(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications/seen-by-source",
		`{"userId": "user-1", "notificationId": "n-1", "sourceId": "q-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n-1"}, f.store.seenIDs)
	assert.Empty(t, f.store.sourceID, "source path untouched when the record id is known")
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["success"])
}

func TestMarkSeenBySource_RecordIDOnly(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications/seen-by-source",
		`{"userId": "user-1", "notificationId": "n-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n-1"}, f.store.seenIDs)
}

func TestMarkSeenBySource_MissingBothIDs(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/notifications/seen-by-source", `{"userId": "user-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDeviceToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/push/subscriptions",
		`{"userId": "user-1", "token": "token-1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", f.registry.userID)
	assert.Equal(t, "token-1", f.registry.token)
}

func TestRegisterDeviceToken_MissingToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.request(http.MethodPost, "/api/push/subscriptions", `{"userId": "user-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
