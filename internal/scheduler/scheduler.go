package scheduler

//go:generate mockgen -source=scheduler.go -destination=mocks_test.go -package=scheduler

import (
	"context"
	"log/slog"
	"time"

	"wechat_sync/internal/domain"
)

// RetryStore hands out retrying tasks whose backoff has elapsed.
type RetryStore interface {
	ClaimDueRetries(ctx context.Context, now time.Time, limit int) ([]domain.SyncRequest, error)
	DeferRetry(ctx context.Context, id string, at time.Time) error
}

type RequestPublisher interface {
	PublishSyncRequest(ctx context.Context, req domain.SyncRequest) error
}

// Scheduler periodically re-enqueues sync tasks that are due for a retry.
type Scheduler struct {
	store     RetryStore
	publisher RequestPublisher
	interval  time.Duration
	batch     int
	now       func() time.Time
	logger    *slog.Logger
}

func NewScheduler(store RetryStore, publisher RequestPublisher, interval time.Duration, batch int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		now:       time.Now,
		logger:    logger.With("component", "retry_scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "batch", s.batch)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep returns the number of requests re-enqueued.
func (s *Scheduler) sweep(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	requests, err := s.store.ClaimDueRetries(sweepCtx, s.now(), s.batch)
	if err != nil {
		s.logger.Error("claim due retries failed", "error", err)
		return 0
	}

	published := 0
	for _, req := range requests {
		if err := s.publisher.PublishSyncRequest(sweepCtx, req); err != nil {
			s.logger.Error("failed to re-enqueue task", "task_id", req.TaskID, "error", err)
			if err := s.store.DeferRetry(context.WithoutCancel(ctx), req.TaskID, s.now().Add(s.interval)); err != nil {
				s.logger.Error("failed to defer retry", "task_id", req.TaskID, "error", err)
			}
			continue
		}
		published++
	}

	if len(requests) > 0 {
		s.logger.Info("retries re-enqueued", "claimed", len(requests), "published", published)
	}
	return published
}
