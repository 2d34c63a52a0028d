package notifier

import (
	"context"
	"log/slog"

	"wechat_sync/internal/domain"
)

type Noop struct {
	logger *slog.Logger
}

func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger.With("component", "noop_notifier")}
}

func (n *Noop) Notify(ctx context.Context, payload domain.CallbackPayload) error {
	n.logger.DebugContext(ctx, "callback skipped (disabled)",
		"task_id", payload.TaskID,
		"status", payload.Status,
	)
	return nil
}
