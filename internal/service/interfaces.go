package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"wechat_sync/internal/domain"
)

// TaskStore persists sync task state. MarkRunning must be an atomic claim.
type TaskStore interface {
	MarkRunning(ctx context.Context, id string) (bool, error)
	UpdateProgress(ctx context.Context, id string, progress domain.Progress) error
	MarkCompleted(ctx context.Context, id string, result domain.SyncResult, processedCount int) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	GetTask(ctx context.Context, id string) (*domain.SyncTask, error)
	RetryTask(ctx context.Context, id string) (bool, error)
}

type AccountStore interface {
	Get(ctx context.Context, id string) (*domain.Account, error)
	RecordSync(ctx context.Context, id string, synced int, at time.Time) error
}

type CredentialProvider interface {
	AccessToken(ctx context.Context, account *domain.Account) (string, error)
}

type ArticleSource interface {
	FetchPage(ctx context.Context, accessToken string, offset, limit int) ([]domain.RawArticle, error)
}

// ArticleRepository stages upserts in a unit of work until Flush.
type ArticleRepository interface {
	FindByExternalID(ctx context.Context, accountID, externalID string) (*domain.Article, error)
	Upsert(ctx context.Context, article *domain.Article) (bool, error)
	Flush(ctx context.Context) error
	Clear()
}

type MediaDispatcher interface {
	Dispatch(ctx context.Context, taskID string, urls []string) error
}

type Notifier interface {
	Notify(ctx context.Context, payload domain.CallbackPayload) error
}
