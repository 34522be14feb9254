package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"askfan-notify/internal/models"
)

// Client is the HTTP client side of the relay API. A client session uses it
// as its record store and acknowledgement path; the permission flow uses it
// to register device tokens.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay request to %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay request to %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}

// ListByUser fetches the user's records, most recent first.
func (c *Client) ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error) {
	path := fmt.Sprintf("/api/notifications?userId=%s&limit=%d", url.QueryEscape(userID), limit)
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relay request to %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	var records []models.NotificationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return records, nil
}

// MarkSeen acknowledges that the user has seen one record.
func (c *Client) MarkSeen(ctx context.Context, id string) error {
	return c.send(ctx, "PUT", "/api/notifications/"+url.PathEscape(id)+"/seen")
}

// MarkDelivered acknowledges that this client rendered one record.
func (c *Client) MarkDelivered(ctx context.Context, id string) error {
	return c.send(ctx, "PUT", "/api/notifications/"+url.PathEscape(id)+"/delivered")
}

// MarkSeenBySource marks every unseen record for the user and source id.
func (c *Client) MarkSeenBySource(ctx context.Context, userID, sourceID string) error {
	return c.postJSON(ctx, "/api/notifications/seen-by-source", map[string]string{
		"userId":   userID,
		"sourceId": sourceID,
	})
}

// RegisterToken records a device token for push delivery.
func (c *Client) RegisterToken(ctx context.Context, userID, token string) error {
	return c.postJSON(ctx, "/api/push/subscriptions", map[string]string{
		"userId": userID,
		"token":  token,
	})
}

// CreateNotification asks the relay to persist and fan out a notification.
// Used by upstream services reacting to question events.
func (c *Client) CreateNotification(ctx context.Context, rec models.NotificationRecord, channels []string, priority string) error {
	return c.postJSON(ctx, "/api/notifications", map[string]interface{}{
		"userId":     rec.UserID,
		"title":      rec.Title,
		"message":    rec.Message,
		"kind":       string(rec.Kind),
		"sourceId":   rec.SourceID,
		"sourceType": rec.SourceType,
		"channels":   channels,
		"priority":   priority,
	})
}
