package handlers

import (
	"context"

	"github.com/videotube/backend/internal/logging"
)

// publishEvent emits an event without failing the request; delivery problems are logged.
func publishEvent(ctx context.Context, publisher EventPublisher, subject string, payload any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, subject, payload); err != nil {
		logging.FromContext(ctx).Warn("publish event failed", "subject", subject, "error", err)
	}
}

// invalidateStats drops the cached dashboard aggregates of a channel after a write that
// changes them.
func invalidateStats(ctx context.Context, cache StatsCache, ownerID string) {
	if cache == nil || ownerID == "" {
		return
	}
	cache.Invalidate(ctx, ownerID)
}
