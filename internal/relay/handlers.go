package relay

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
	"askfan-notify/internal/models"
	"askfan-notify/internal/store"
)

// FeedPublisher signals connected clients that a user's set changed.
type FeedPublisher interface {
	Publish(ctx context.Context, userID string) error
}

// PushSender fans a record out to the user's registered devices.
type PushSender interface {
	SendToUser(ctx context.Context, rec models.NotificationRecord) error
}

// JobEnqueuer hands a delivery job to the outbound queue.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job models.DeliveryJob) error
}

// TokenRegistrar records a device token for a user.
type TokenRegistrar interface {
	Register(ctx context.Context, userID, token string) error
}

// Handler holds the relay's HTTP endpoints. The store write is the only
// operation whose failure fails the request; feed publish, push and queue
// enqueue are best effort because a client that misses them recovers the
// record on its next batch load.
type Handler struct {
	store      store.Store
	feed       FeedPublisher
	push       PushSender
	queue      JobEnqueuer
	registry   TokenRegistrar
	batchLimit int
	logger     logger.Logger
}

func NewHandler(st store.Store, feed FeedPublisher, push PushSender, queue JobEnqueuer, registry TokenRegistrar, batchLimit int, log logger.Logger) *Handler {
	return &Handler{
		store:      st,
		feed:       feed,
		push:       push,
		queue:      queue,
		registry:   registry,
		batchLimit: batchLimit,
		logger:     log.WithFields(map[string]interface{}{"component": "relay-handler"}),
	}
}

// RegisterRoutes attaches the relay endpoints to an Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/notifications", h.CreateNotification)
	g.GET("/notifications", h.ListNotifications)
	g.GET("/notifications/unseen-count", h.UnseenCount)
	g.PUT("/notifications/:id/seen", h.MarkSeen)
	g.PUT("/notifications/:id/delivered", h.MarkDelivered)
	g.POST("/notifications/seen-by-source", h.MarkSeenBySource)
	g.POST("/push/subscriptions", h.RegisterDeviceToken)
}

type createNotificationRequest struct {
	UserID     string   `json:"userId" validate:"required"`
	Title      string   `json:"title" validate:"required"`
	Message    string   `json:"message" validate:"required"`
	Kind       string   `json:"kind" validate:"omitempty,oneof=info success warning error"`
	SourceID   string   `json:"sourceId"`
	SourceType string   `json:"sourceType"`
	Channels   []string `json:"channels" validate:"omitempty,dive,oneof=email sms"`
	Priority   string   `json:"priority" validate:"omitempty,oneof=high normal low"`
}

// CreateNotification persists a record for a triggering event, then signals
// the feed, pushes to registered devices and enqueues email/SMS jobs.
func (h *Handler) CreateNotification(c echo.Context) error {
	var req createNotificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	kind := models.Kind(req.Kind)
	if !kind.Valid() {
		kind = models.KindInfo
	}
	rec := models.NotificationRecord{
		UserID:     req.UserID,
		Title:      req.Title,
		Message:    req.Message,
		Kind:       kind,
		SourceID:   req.SourceID,
		SourceType: req.SourceType,
	}

	ctx := c.Request().Context()
	id, err := h.store.Create(ctx, &rec)
	if err != nil {
		h.logger.Error("notification write failed", map[string]interface{}{"userId": req.UserID, "error": err})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create notification")
	}
	metrics.NotificationsCreated.WithLabelValues(string(kind)).Inc()

	if err := h.feed.Publish(ctx, req.UserID); err != nil {
		h.logger.Warn("feed publish failed", map[string]interface{}{"userId": req.UserID, "error": err})
	}
	if err := h.push.SendToUser(ctx, rec); err != nil {
		h.logger.Warn("push fan-out failed", map[string]interface{}{"userId": req.UserID, "error": err})
	}
	h.enqueueDeliveries(ctx, rec, req.Channels, req.Priority)

	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) enqueueDeliveries(ctx context.Context, rec models.NotificationRecord, channels []string, priority string) {
	if priority == "" {
		priority = models.PriorityNormal
	}
	for _, channel := range channels {
		job := models.DeliveryJob{
			JobID:      uuid.New().String(),
			Channel:    channel,
			UserID:     rec.UserID,
			Kind:       rec.Kind,
			SourceID:   rec.SourceID,
			SourceType: rec.SourceType,
			Priority:   priority,
			Metadata: map[string]interface{}{
				"title":   rec.Title,
				"message": rec.Message,
			},
			EnqueuedAt: time.Now().UTC(),
		}
		if err := h.queue.Enqueue(ctx, job); err != nil {
			h.logger.Warn("delivery enqueue failed", map[string]interface{}{
				"userId":  rec.UserID,
				"channel": channel,
				"error":   err,
			})
		}
	}
}

// ListNotifications returns the user's records, most recent first.
func (h *Handler) ListNotifications(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	limit := h.batchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if parsed < limit {
			limit = parsed
		}
	}

	records, err := h.store.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		h.logger.Error("notification list failed", map[string]interface{}{"userId": userID, "error": err})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list notifications")
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// UnseenCount returns the number of unseen records for a user.
func (h *Handler) UnseenCount(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	count, err := h.store.UnseenCount(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count notifications")
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": count})
}

// MarkSeen acknowledges that the user has seen one record.
func (h *Handler) MarkSeen(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.MarkSeen(c.Request().Context(), id); err != nil {
		h.logger.Error("mark seen failed", map[string]interface{}{"id": id, "error": err})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notification seen")
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkDelivered acknowledges that a client rendered one record.
func (h *Handler) MarkDelivered(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.MarkDelivered(c.Request().Context(), id); err != nil {
		h.logger.Error("mark delivered failed", map[string]interface{}{"id": id, "error": err})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notification delivered")
	}
	return c.NoContent(http.StatusNoContent)
}

type markSeenBySourceRequest struct {
	UserID         string `json:"userId" validate:"required"`
	NotificationID string `json:"notificationId"`
	SourceID       string `json:"sourceId" validate:"required_without=NotificationID"`
}

// MarkSeenBySource acknowledges a dismissal from a client that may only know
// the source event. The record id wins when present; otherwise every unseen
// record for the user and source id is marked.
func (h *Handler) MarkSeenBySource(c echo.Context) error {
	var req markSeenBySourceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if req.NotificationID != "" {
		if err := h.store.MarkSeen(ctx, req.NotificationID); err != nil {
			h.logger.Error("mark seen failed", map[string]interface{}{
				"userId": req.UserID,
				"id":     req.NotificationID,
				"error":  err,
			})
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notification seen")
		}
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}

	if _, err := h.store.MarkSeenBySource(ctx, req.UserID, req.SourceID); err != nil {
		h.logger.Error("mark seen by source failed", map[string]interface{}{
			"userId":   req.UserID,
			"sourceId": req.SourceID,
			"error":    err,
		})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to mark notifications seen")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type registerTokenRequest struct {
	UserID string `json:"userId" validate:"required"`
	Token  string `json:"token" validate:"required"`
}

// RegisterDeviceToken stores a granted device token for push delivery.
func (h *Handler) RegisterDeviceToken(c echo.Context) error {
	var req registerTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.registry.Register(c.Request().Context(), req.UserID, req.Token); err != nil {
		h.logger.Error("token registration failed", map[string]interface{}{"userId": req.UserID, "error": err})
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to register device token")
	}
	return c.NoContent(http.StatusCreated)
}
