package publisher

import (
	"context"
	"log/slog"
)

// NoopDispatcher only logs media dispatches. It stands in when no download
// queue is configured.
type NoopDispatcher struct {
	logger *slog.Logger
}

func NewNoopDispatcher(logger *slog.Logger) *NoopDispatcher {
	return &NoopDispatcher{
		logger: logger.With("component", "noop_media_dispatcher"),
	}
}

func (d *NoopDispatcher) Dispatch(ctx context.Context, taskID string, urls []string) error {
	d.logger.InfoContext(ctx, "media dispatch skipped (noop)",
		"task_id", taskID,
		"urls", len(urls),
	)
	return nil
}
