// Package notify maintains a client session's de-duplicated notification view.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
	"askfan-notify/internal/models"

	"github.com/google/uuid"
)

// RecordStore is the slice of the notification store the manager needs.
type RecordStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)
	MarkSeen(ctx context.Context, id string) error
	MarkDelivered(ctx context.Context, id string) error
}

// RelayClient marks records seen through the relay when only the source id is
// known locally.
type RelayClient interface {
	MarkSeenBySource(ctx context.Context, userID, sourceID string) error
}

// PermissionAPI requests platform notification permission for a user.
type PermissionAPI interface {
	Request(ctx context.Context, userID string) (granted bool, err error)
}

// TopicSubscriber subscribes a user to push topics after permission is granted.
type TopicSubscriber interface {
	SubscribeTopics(ctx context.Context, userID string, topics []string) error
}

// ManagerDeps bundles the collaborators injected into a Manager.
type ManagerDeps struct {
	Store       RecordStore
	Relay       RelayClient
	Permissions PermissionAPI
	Topics      TopicSubscriber
	Dedupe      *DedupeCache
	Runner      EffectRunner
	Logger      logger.Logger
}

// Manager reconciles three input channels (initial batch load, live store
// snapshots, push/local events) into one de-duplicated, most-recent-first
// notification list, and owns the seen/delivered acknowledgement writes.
//
// All state transitions happen under one mutex, so each transition is atomic
// with respect to the others; Load must complete before Watch attaches the
// live subscription so the first snapshot is not treated as entirely new.
type Manager struct {
	mu sync.Mutex

	userID        string
	batchLimit    int
	defaultTopics []string

	store  RecordStore
	relay  RelayClient
	perm   PermissionAPI
	topics TopicSubscriber
	dedupe *DedupeCache
	runner EffectRunner
	logger logger.Logger

	list   []models.ClientNotification
	hasNew bool
	loaded bool

	processed      map[string]struct{} // record ids already ingested
	deliveredAcked map[string]struct{} // record ids whose delivered ack was fired
	permissionDone bool                // topic subscription is one-time
}

func NewManager(userID string, batchLimit int, defaultTopics []string, deps ManagerDeps) *Manager {
	if batchLimit <= 0 {
		batchLimit = 50
	}
	if deps.Dedupe == nil {
		deps.Dedupe = NewDedupeCache(defaultDedupeSize)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Runner == nil {
		deps.Runner = NewAsyncRunner(deps.Logger)
	}

	return &Manager{
		userID:         userID,
		batchLimit:     batchLimit,
		defaultTopics:  defaultTopics,
		store:          deps.Store,
		relay:          deps.Relay,
		perm:           deps.Permissions,
		topics:         deps.Topics,
		dedupe:         deps.Dedupe,
		runner:         deps.Runner,
		logger:         deps.Logger.WithFields(map[string]interface{}{"component": "notify-manager", "userId": userID}),
		processed:      make(map[string]struct{}),
		deliveredAcked: make(map[string]struct{}),
	}
}

// Load performs the initial batch load. It fully populates the dedupe cache
// and the visible list; Watch refuses to attach until Load has run.
func (m *Manager) Load(ctx context.Context) error {
	records, err := m.store.ListByUser(ctx, m.userID, m.batchLimit)
	if err != nil {
		return fmt.Errorf("initial notification load: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store order is already most-recent-first; appending preserves it.
	for _, rec := range records {
		m.ingestLocked(rec, false)
	}
	m.loaded = true
	return nil
}

// Watch consumes live snapshots until ctx is cancelled or the channel closes.
// Each snapshot is the user's full current matching set; records already
// processed are skipped rather than re-added. Returns an error if called
// before Load.
func (m *Manager) Watch(ctx context.Context, snapshots <-chan []models.NotificationRecord) error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return fmt.Errorf("watch attached before initial load")
	}
	m.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				m.mu.Lock()
				// The feed delivers each snapshot most-recent-first. New
				// records are prepended one at a time, so walk the snapshot
				// oldest-first to keep that order at the head of the list.
				for i := len(snap) - 1; i >= 0; i-- {
					m.ingestLocked(snap[i], true)
				}
				m.mu.Unlock()
			}
		}
	}()
	return nil
}

// ingestLocked normalizes a stored record into the visible list. Caller holds
// the mutex. atHead controls whether new entries are prepended (live updates)
// or appended (initial load, already ordered).
func (m *Manager) ingestLocked(rec models.NotificationRecord, atHead bool) {
	if _, done := m.processed[rec.ID]; done {
		return
	}
	m.processed[rec.ID] = struct{}{}

	// Delivery acknowledgement is independent of the seen state machine and
	// fires at most once per record.
	if !rec.Delivered {
		if _, acked := m.deliveredAcked[rec.ID]; !acked {
			m.deliveredAcked[rec.ID] = struct{}{}
			id := rec.ID
			m.runner.Do("mark-delivered", func(ctx context.Context) error {
				return m.store.MarkDelivered(ctx, id)
			})
		}
	}

	if rec.SourceID != "" {
		if m.dedupe.Seen(rec.SourceID) {
			metrics.DuplicatesSuppressed.Inc()
			return
		}
		// A push event for the same underlying event may already be visible;
		// keep that entry and give it the record id so dismissal can mark the
		// record seen directly.
		for i := range m.list {
			if m.list[i].SourceID == rec.SourceID {
				if m.list[i].RecordID == "" {
					m.list[i].RecordID = rec.ID
				}
				metrics.DuplicatesSuppressed.Inc()
				return
			}
		}
		m.dedupe.Add(rec.SourceID)
	}

	n := models.FromRecord(rec)
	n.LocalID = uuid.New().String()
	if atHead {
		m.list = append([]models.ClientNotification{n}, m.list...)
	} else {
		m.list = append(m.list, n)
	}
	if !n.Seen {
		m.hasNew = true
	}
}

// Show inserts a notification that has no record id yet (push foreground
// event or locally synthesized). Returns the generated local id. If the
// source id is already tracked, the id is returned but nothing is inserted.
func (m *Manager) Show(n models.ClientNotification) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	n.LocalID = id
	if !n.Kind.Valid() {
		n.Kind = models.KindInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if n.SourceID != "" {
		if m.dedupe.Seen(n.SourceID) {
			metrics.DuplicatesSuppressed.Inc()
			return id
		}
		// Replace-on-duplicate for a visible entry whose source id has
		// already aged out of the dedupe cache.
		for i, existing := range m.list {
			if existing.SourceID == n.SourceID {
				m.list = append(m.list[:i], m.list[i+1:]...)
				break
			}
		}
	}

	m.list = append([]models.ClientNotification{n}, m.list...)
	if !n.Seen && !n.Local {
		m.hasNew = true
	}
	return id
}

// ShowPush normalizes a push-transport foreground event and shows it.
func (m *Manager) ShowPush(title, message string, data map[string]string) string {
	return m.Show(models.FromPush(title, message, data))
}

// Dismiss removes the entry from the visible list immediately and, when it
// carries a source id, queues exactly one best-effort mark-seen write: by
// record id if known, else by source id through the relay.
func (m *Manager) Dismiss(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.list {
		if n.LocalID != localID {
			continue
		}
		m.list = append(m.list[:i], m.list[i+1:]...)
		if n.SourceID != "" {
			m.dedupe.Add(n.SourceID)
			m.markSeenLocked(n)
		}
		return
	}
}

// ClearNewFlag drops the unseen indicator immediately and bulk-fires
// best-effort mark-seen writes for every currently unseen entry with a source
// id. Not a transaction: partial failures are logged, not retried, and never
// surfaced.
func (m *Manager) ClearNewFlag() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hasNew = false
	for i := range m.list {
		if m.list[i].Seen || m.list[i].SourceID == "" {
			continue
		}
		m.list[i].Seen = true
		m.markSeenLocked(m.list[i])
	}
}

func (m *Manager) markSeenLocked(n models.ClientNotification) {
	if n.RecordID != "" {
		id := n.RecordID
		m.runner.Do("mark-seen", func(ctx context.Context) error {
			return m.store.MarkSeen(ctx, id)
		})
		return
	}
	sourceID := n.SourceID
	m.runner.Do("mark-seen-by-source", func(ctx context.Context) error {
		return m.relay.MarkSeenBySource(ctx, m.userID, sourceID)
	})
}

// RequestPermission delegates to the platform permission API. On grant it
// performs a one-time topic subscription and synthesizes a local success
// notification; denial or failure synthesizes an error notification. Nothing
// propagates to the caller.
func (m *Manager) RequestPermission(ctx context.Context) {
	granted, err := m.perm.Request(ctx, m.userID)
	if err != nil {
		m.logger.Warn("permission request failed", map[string]interface{}{"error": err})
		m.Show(models.ClientNotification{
			Title:   "Notifications unavailable",
			Message: "We could not enable notifications. Please try again later.",
			Kind:    models.KindError,
			Local:   true,
		})
		return
	}
	if !granted {
		m.Show(models.ClientNotification{
			Title:   "Notifications blocked",
			Message: "Enable notifications in your browser settings to get updates.",
			Kind:    models.KindError,
			Local:   true,
		})
		return
	}

	m.mu.Lock()
	first := !m.permissionDone
	m.permissionDone = true
	m.mu.Unlock()

	if first {
		// Subscription failure must not fail the permission flow; the store
		// write path still delivers notifications without push.
		userID := m.userID
		topics := m.defaultTopics
		m.runner.Do("subscribe-topics", func(ctx context.Context) error {
			return m.topics.SubscribeTopics(ctx, userID, topics)
		})
	}

	m.Show(models.ClientNotification{
		Title:      "Notifications enabled",
		Message:    "You will now get updates about your questions.",
		Kind:       models.KindSuccess,
		SourceType: models.SourceTypePushSubscribed,
		Local:      true,
	})
}

// List returns a copy of the visible list, most recent first.
func (m *Manager) List() []models.ClientNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ClientNotification, len(m.list))
	copy(out, m.list)
	return out
}

// HasNew reports whether an unseen, non-local notification arrived since the
// flag was last cleared.
func (m *Manager) HasNew() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasNew
}
