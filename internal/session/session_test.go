package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askfan-notify/internal/common/config"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"
)

func sessionConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Notifications.BatchLimit = 25
	cfg.Notifications.DedupeCacheSize = 64
	cfg.Push.DefaultTopics = []string{"new-questions"}
	return cfg
}

func TestNewManager_LoadsThroughRelay(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		require.NoError(t, json.NewEncoder(w).Encode([]models.NotificationRecord{
			{ID: "n-2", UserID: "user-1", Delivered: true},
			{ID: "n-1", UserID: "user-1", Seen: true, Delivered: true},
		}))
	}))
	defer srv.Close()

	mgr := NewManager(sessionConfig(), "user-1", Options{
		RelayBaseURL: srv.URL,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, mgr.Load(context.Background()))

	assert.Equal(t, "/api/notifications?userId=user-1&limit=25", gotURI,
		"batch limit comes from configuration")
	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, "n-2", list[0].RecordID)
	assert.True(t, mgr.HasNew())
}

func TestNewManager_DismissAcknowledgesBySource(t *testing.T) {
	acks := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte("[]"))
		case http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			acks <- body["sourceId"]
			require.NoError(t, json.NewEncoder(w).Encode(map[string]bool{"success": true}))
		}
	}))
	defer srv.Close()

	mgr := NewManager(sessionConfig(), "user-1", Options{
		RelayBaseURL: srv.URL,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, mgr.Load(context.Background()))

	id := mgr.ShowPush("New question", "You have a new question", map[string]string{"sourceId": "q-9"})
	mgr.Dismiss(id)

	select {
	case sourceID := <-acks:
		assert.Equal(t, "q-9", sourceID)
	case <-time.After(time.Second):
		t.Fatal("no acknowledgement reached the relay")
	}
	assert.Empty(t, mgr.List())
}
