package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wechat_sync/internal/config"
	"wechat_sync/internal/domain"
)

const (
	progressFetching   = 10
	progressProcessing = 30
	progressMedia      = 70
	progressFinalizing = 90
)

// SyncService drives one WeChat article sync run per request.
type SyncService struct {
	tasks       TaskStore
	accounts    AccountStore
	credentials CredentialProvider
	source      ArticleSource
	newArticles func() ArticleRepository
	media       MediaDispatcher
	notifier    Notifier
	logger      *slog.Logger
	config      config.SyncConfig
}

// NewSyncService builds a service. newArticles is called once per run so
// concurrent runs never share a unit of work.
func NewSyncService(
	tasks TaskStore,
	accounts AccountStore,
	credentials CredentialProvider,
	source ArticleSource,
	newArticles func() ArticleRepository,
	media MediaDispatcher,
	notifier Notifier,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = config.DefaultPageSize
	}
	return &SyncService{
		tasks:       tasks,
		accounts:    accounts,
		credentials: credentials,
		source:      source,
		newArticles: newArticles,
		media:       media,
		notifier:    notifier,
		logger:      logger.With("component", "sync"),
		config:      cfg,
	}
}

type runStats struct {
	New     int
	Updated int
	Failed  int
	Skipped int
	Media   []string
}

func (r *runStats) processed() int {
	return r.New + r.Updated
}

// Handle runs the sync described by req. Invalid requests and tasks that
// cannot be claimed return an error without touching the task. Every other
// failure is recorded on the task and classified in the returned outcome.
func (s *SyncService) Handle(ctx context.Context, req domain.SyncRequest) (domain.Outcome, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("rejecting sync request", "task_id", req.TaskID, "error", err)
		return domain.OutcomeTerminalFailure, err
	}

	logger := s.logger.With("task_id", req.TaskID, "account_id", req.AccountID)

	claimed, err := s.tasks.MarkRunning(ctx, req.TaskID)
	if err != nil {
		return domain.OutcomeTerminalFailure, fmt.Errorf("%w: %s: %w", domain.ErrTaskClaimFailed, req.TaskID, err)
	}
	if !claimed {
		logger.Warn("task not claimable")
		return domain.OutcomeTerminalFailure, fmt.Errorf("%w: %s", domain.ErrTaskClaimFailed, req.TaskID)
	}

	startTime := time.Now()
	logger.Info("starting sync",
		"sync_type", req.SyncType,
		"sync_scope", req.SyncScope,
		"article_limit", req.ArticleLimit,
		"batch_size", req.BatchSize,
		"force_sync", req.ForceSync,
		"process_media", req.ProcessMedia,
	)

	runCtx := ctx
	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}

	if err := s.run(runCtx, logger, req); err != nil {
		// The run deadline may already be spent; bookkeeping still has to land.
		return s.fail(context.WithoutCancel(ctx), logger, req, err), err
	}

	logger.Info("sync completed", "duration", time.Since(startTime))
	return domain.OutcomeSuccess, nil
}

func (s *SyncService) run(ctx context.Context, logger *slog.Logger, req domain.SyncRequest) error {
	account, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", req.AccountID, err)
	}
	if account == nil {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, req.AccountID)
	}

	token, err := s.credentials.AccessToken(ctx, account)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCredentialUnavailable, err)
	}
	if token == "" {
		return fmt.Errorf("%w: empty access token for account %s", domain.ErrCredentialUnavailable, req.AccountID)
	}

	s.updateProgress(ctx, logger, req.TaskID, domain.Progress{
		Step:         domain.StepFetchingArticles,
		Percentage:   progressFetching,
		ArticleLimit: req.ArticleLimit,
	})

	raws, err := s.fetchArticles(ctx, logger, token, req)
	if err != nil {
		return err
	}

	logger.Info("fetched articles", "count", len(raws))

	if len(raws) == 0 {
		result := domain.SyncResult{
			Status:        string(domain.TaskCompleted),
			Message:       "no articles to sync",
			SyncType:      req.SyncType,
			SyncScope:     req.SyncScope,
			ArticleLimit:  req.ArticleLimit,
			ForceSync:     req.ForceSync,
			ForceDownload: req.ForceDownload,
		}
		return s.complete(ctx, logger, req, result)
	}

	s.updateProgress(ctx, logger, req.TaskID, domain.Progress{
		Step:         domain.StepProcessingArticles,
		Percentage:   progressProcessing,
		ArticleLimit: req.ArticleLimit,
	})

	stats, err := s.processArticles(ctx, logger, raws, req)
	if err != nil {
		return err
	}

	dispatched := 0
	if req.ProcessMedia {
		s.updateProgress(ctx, logger, req.TaskID, domain.Progress{
			Step:              domain.StepDownloadingMedia,
			Percentage:        progressMedia,
			ProcessedArticles: stats.processed(),
			ArticleLimit:      req.ArticleLimit,
			MediaCount:        len(stats.Media),
		})
		dispatched = s.dispatchMedia(ctx, logger, req.TaskID, stats.Media)
	}

	s.updateProgress(ctx, logger, req.TaskID, domain.Progress{
		Step:              domain.StepFinalizing,
		Percentage:        progressFinalizing,
		ProcessedArticles: stats.processed(),
		ProcessedMedia:    dispatched,
		ArticleLimit:      req.ArticleLimit,
		MediaCount:        len(stats.Media),
	})

	result := domain.SyncResult{
		Status: string(domain.TaskCompleted),
		Message: fmt.Sprintf("synced %d articles (%d new, %d updated, %d failed, %d deleted)",
			stats.processed(), stats.New, stats.Updated, stats.Failed, stats.Skipped),
		ProcessedCount:  stats.processed(),
		NewArticles:     stats.New,
		UpdatedArticles: stats.Updated,
		FailedArticles:  stats.Failed,
		SkippedArticles: stats.Skipped,
		MediaRequested:  req.ProcessMedia,
		MediaCount:      len(stats.Media),
		SyncType:        req.SyncType,
		SyncScope:       req.SyncScope,
		ArticleLimit:    req.ArticleLimit,
		ForceSync:       req.ForceSync,
		ForceDownload:   req.ForceDownload,
	}
	return s.complete(ctx, logger, req, result)
}

// fetchArticles pages through the source until the limit is reached or the
// source runs dry. A short page ends the loop unless ForceSync is set.
func (s *SyncService) fetchArticles(ctx context.Context, logger *slog.Logger, token string, req domain.SyncRequest) ([]domain.RawArticle, error) {
	var articles []domain.RawArticle
	offset := 0

	for len(articles) < req.ArticleLimit {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch articles: %w", err)
		}

		pageSize := min(s.config.PageSize, req.ArticleLimit-len(articles))
		page, err := s.source.FetchPage(ctx, token, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page) > pageSize {
			page = page[:pageSize]
		}

		articles = append(articles, page...)
		offset += len(page)

		logger.Debug("fetched page",
			"offset", offset,
			"requested", pageSize,
			"returned", len(page),
			"total", len(articles),
		)

		if len(page) == 0 {
			break
		}
		if !req.ForceSync && len(page) < pageSize {
			break
		}
	}

	return articles, nil
}

func (s *SyncService) processArticles(ctx context.Context, logger *slog.Logger, raws []domain.RawArticle, req domain.SyncRequest) (*runStats, error) {
	articles := s.newArticles()
	processor := NewArticleProcessor(articles)
	stats := &runStats{}
	seenMedia := make(map[string]struct{})
	total := len(raws)
	lastPct := progressProcessing

	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("process articles: %w", err)
		}

		if raw.Deleted {
			stats.Skipped++
			logger.Debug("skipping deleted article", "index", i, "external_id", raw.ExternalID)
		} else if res, err := processor.Process(ctx, raw, req.AccountID, req.ForceDownload); err != nil {
			stats.Failed++
			logger.Warn("skipping article",
				"index", i,
				"external_id", raw.ExternalID,
				"error", err,
			)
		} else {
			if res.IsNew {
				stats.New++
			} else {
				stats.Updated++
			}
			for _, u := range res.MediaURLs {
				if _, ok := seenMedia[u]; ok {
					continue
				}
				seenMedia[u] = struct{}{}
				stats.Media = append(stats.Media, u)
			}
		}

		if (i+1)%req.BatchSize == 0 {
			if err := flush(ctx, articles); err != nil {
				return nil, err
			}
			logger.Debug("flushed batch", "processed", i+1, "total", total)
		}

		pct := progressProcessing + (progressMedia-progressProcessing)*(i+1)/total
		if pct != lastPct {
			lastPct = pct
			s.updateProgress(ctx, logger, req.TaskID, domain.Progress{
				Step:              domain.StepProcessingArticles,
				Percentage:        pct,
				ProcessedArticles: stats.processed(),
				ArticleLimit:      req.ArticleLimit,
			})
		}
	}

	if err := flush(ctx, articles); err != nil {
		return nil, err
	}

	return stats, nil
}

func flush(ctx context.Context, articles ArticleRepository) error {
	defer articles.Clear()
	if err := articles.Flush(ctx); err != nil {
		return fmt.Errorf("%w: flush articles: %w", domain.ErrPersistence, err)
	}
	return nil
}

// dispatchMedia returns the number of URLs handed to the dispatcher.
func (s *SyncService) dispatchMedia(ctx context.Context, logger *slog.Logger, taskID string, urls []string) int {
	if s.media == nil || len(urls) == 0 {
		return 0
	}
	if err := s.media.Dispatch(ctx, taskID, urls); err != nil {
		logger.Warn("media dispatch failed", "urls", len(urls), "error", err)
		return 0
	}
	logger.Info("media dispatched", "urls", len(urls))
	return len(urls)
}

func (s *SyncService) complete(ctx context.Context, logger *slog.Logger, req domain.SyncRequest, result domain.SyncResult) error {
	if err := s.tasks.MarkCompleted(ctx, req.TaskID, result, result.ProcessedCount); err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}

	logger.Info("task completed",
		"processed", result.ProcessedCount,
		"new", result.NewArticles,
		"updated", result.UpdatedArticles,
		"failed", result.FailedArticles,
		"media", result.MediaCount,
	)

	if err := s.accounts.RecordSync(ctx, req.AccountID, result.ProcessedCount, time.Now()); err != nil {
		logger.Warn("failed to record account sync", "error", err)
	}

	s.notify(ctx, logger, req, domain.TaskCompleted, &result, "")
	return nil
}

func (s *SyncService) fail(ctx context.Context, logger *slog.Logger, req domain.SyncRequest, cause error) domain.Outcome {
	logger.Error("sync failed", "error", cause)

	if err := s.tasks.MarkFailed(ctx, req.TaskID, cause.Error()); err != nil {
		logger.Error("failed to mark task failed", "error", err)
	}

	if s.shouldRetry(ctx, logger, req.TaskID, cause) {
		scheduled, err := s.tasks.RetryTask(ctx, req.TaskID)
		switch {
		case err != nil:
			logger.Error("failed to schedule retry", "error", err)
		case scheduled:
			logger.Info("retry scheduled")
			return domain.OutcomeRetryableFailure
		default:
			logger.Warn("retry not scheduled")
		}
	}

	s.notify(ctx, logger, req, domain.TaskFailed, nil, cause.Error())
	return domain.OutcomeTerminalFailure
}

func (s *SyncService) shouldRetry(ctx context.Context, logger *slog.Logger, taskID string, cause error) bool {
	if !IsRetryable(cause) {
		return false
	}
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		logger.Error("failed to load task for retry decision", "error", err)
		return false
	}
	return ShouldRetry(task, cause)
}

// updateProgress is best-effort; a failed write never stops the run.
func (s *SyncService) updateProgress(ctx context.Context, logger *slog.Logger, taskID string, progress domain.Progress) {
	if err := s.tasks.UpdateProgress(ctx, taskID, progress); err != nil {
		logger.Warn("failed to update progress",
			"step", progress.Step,
			"percentage", progress.Percentage,
			"error", err,
		)
	}
}

func (s *SyncService) notify(ctx context.Context, logger *slog.Logger, req domain.SyncRequest, status domain.TaskStatus, result *domain.SyncResult, errMsg string) {
	if s.notifier == nil || req.CallbackURL == "" {
		return
	}
	payload := domain.CallbackPayload{
		URL:       req.CallbackURL,
		TaskID:    req.TaskID,
		AccountID: req.AccountID,
		Status:    status,
		Result:    result,
		Error:     errMsg,
		Timestamp: time.Now().Unix(),
	}
	if err := s.notifier.Notify(ctx, payload); err != nil {
		logger.Warn("callback failed", "url", req.CallbackURL, "error", err)
	}
}
