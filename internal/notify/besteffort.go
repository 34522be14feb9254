package notify

import (
	"context"

	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
)

// EffectRunner executes fire-and-forget side effects. Failures are logged and
// counted but never retried, never surfaced, and never roll back the local
// state transition that triggered them.
type EffectRunner interface {
	Do(op string, fn func(ctx context.Context) error)
}

type asyncRunner struct {
	logger logger.Logger
}

// NewAsyncRunner returns the production runner: each effect runs on its own
// goroutine with a background context. No timeout and no retry; a hung
// request simply never resolves.
func NewAsyncRunner(log logger.Logger) EffectRunner {
	return &asyncRunner{logger: log}
}

func (r *asyncRunner) Do(op string, fn func(ctx context.Context) error) {
	go func() {
		if err := fn(context.Background()); err != nil {
			metrics.BestEffortFailures.WithLabelValues(op).Inc()
			r.logger.Warn("best-effort operation failed", map[string]interface{}{
				"op":    op,
				"error": err,
			})
		}
	}()
}

// SyncRunner executes effects inline. Used in tests to make side effects
// observable without synchronization.
type SyncRunner struct {
	Logger logger.Logger
}

func (r SyncRunner) Do(op string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		metrics.BestEffortFailures.WithLabelValues(op).Inc()
		if r.Logger != nil {
			r.Logger.Warn("best-effort operation failed", map[string]interface{}{
				"op":    op,
				"error": err,
			})
		}
	}
}
