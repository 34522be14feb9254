// Package session wires a client-side notification manager from
// configuration. The store and acknowledgement paths go through the relay
// HTTP API; permission and topic handling are injected per platform.
package session

import (
	"askfan-notify/internal/common/config"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/notify"
	"askfan-notify/internal/relay"
)

// Options carries the per-session collaborators that do not come from
// configuration.
type Options struct {
	RelayBaseURL string
	Permissions  notify.PermissionAPI
	Topics       notify.TopicSubscriber
	Logger       logger.Logger
}

// NewManager builds a notification manager for one user session. Batch size,
// dedupe cache bound and default topics come from configuration; the relay
// client serves as both the record store and the source-keyed
// acknowledgement path.
func NewManager(cfg *config.Config, userID string, opts Options) *notify.Manager {
	client := relay.NewClient(opts.RelayBaseURL)
	return notify.NewManager(userID, cfg.Notifications.BatchLimit, cfg.Push.DefaultTopics, notify.ManagerDeps{
		Store:       client,
		Relay:       client,
		Permissions: opts.Permissions,
		Topics:      opts.Topics,
		Dedupe:      notify.NewDedupeCache(cfg.Notifications.DedupeCacheSize),
		Logger:      opts.Logger,
	})
}
