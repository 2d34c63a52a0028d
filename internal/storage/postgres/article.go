package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"wechat_sync/internal/domain"
)

type articleKey struct {
	accountID  string
	externalID string
}

type stagedArticle struct {
	article *domain.Article
}

// ArticleStore is a unit of work over the articles table. Upsert only stages
// changes; Flush writes them in one transaction and Clear forgets every
// article the store is tracking.
type ArticleStore struct {
	db    *sqlx.DB
	media *MediaStore
	tx    *TransactionManager

	mu      sync.Mutex
	pending map[articleKey]*stagedArticle
	order   []articleKey
	managed map[articleKey]*domain.Article
}

func NewArticleStore(db *sqlx.DB, media *MediaStore, tx *TransactionManager) *ArticleStore {
	return &ArticleStore{
		db:      db,
		media:   media,
		tx:      tx,
		pending: make(map[articleKey]*stagedArticle),
		managed: make(map[articleKey]*domain.Article),
	}
}

const selectArticle = `
	SELECT id, account_id, external_id, title, author, digest, content,
		content_source_url, cover_url, url,
		to_char(release_time, 'YYYY-MM-DD HH24:MI:SS') AS release_time,
		release_time_source, created_at, updated_at
	FROM articles`

// FindByExternalID returns the tracked, staged or stored article, or nil.
func (s *ArticleStore) FindByExternalID(ctx context.Context, accountID, externalID string) (*domain.Article, error) {
	key := articleKey{accountID: accountID, externalID: externalID}

	s.mu.Lock()
	if staged, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return staged.article, nil
	}
	if article, ok := s.managed[key]; ok {
		s.mu.Unlock()
		return article, nil
	}
	s.mu.Unlock()

	var article domain.Article
	err := s.db.GetContext(ctx, &article,
		selectArticle+" WHERE account_id = $1 AND external_id = $2",
		accountID, externalID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select article: %w", err)
	}

	media, err := s.media.GetByArticleID(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("select media: %w", err)
	}
	article.MediaURLs = media

	s.mu.Lock()
	s.managed[key] = &article
	s.mu.Unlock()

	return &article, nil
}

// Upsert stages article for the next Flush and reports whether this call
// introduces the article. Restaging an article that is already pending
// reports false even though the Flush will insert it.
func (s *ArticleStore) Upsert(ctx context.Context, article *domain.Article) (bool, error) {
	if article.ReleaseTime == "" {
		return false, errors.New("article release time is empty")
	}

	key := articleKey{accountID: article.AccountID, externalID: article.ExternalID}

	s.mu.Lock()
	if staged, ok := s.pending[key]; ok {
		staged.article = article
		s.mu.Unlock()
		return false, nil
	}
	_, tracked := s.managed[key]
	s.mu.Unlock()

	isNew := article.ID == 0 && !tracked
	if isNew {
		var id int64
		err := s.db.GetContext(ctx, &id,
			"SELECT id FROM articles WHERE account_id = $1 AND external_id = $2",
			article.AccountID, article.ExternalID,
		)
		switch {
		case err == nil:
			article.ID = id
			isNew = false
		case !errors.Is(err, sql.ErrNoRows):
			return false, fmt.Errorf("check article: %w", err)
		}
	}

	s.mu.Lock()
	s.pending[key] = &stagedArticle{article: article}
	s.order = append(s.order, key)
	s.mu.Unlock()

	return isNew, nil
}

// Flush writes every staged article and its media in one transaction.
func (s *ArticleStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	order := s.order
	pending := s.pending
	s.mu.Unlock()

	if len(order) == 0 {
		return nil
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, key := range order {
			article := pending[key].article
			id, err := s.write(txCtx, article)
			if err != nil {
				return fmt.Errorf("write article %s: %w", article.ExternalID, err)
			}
			article.ID = id
			if err := s.media.ReplaceForArticle(txCtx, id, article.MediaURLs); err != nil {
				return fmt.Errorf("write media of %s: %w", article.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, key := range order {
		s.managed[key] = pending[key].article
	}
	s.pending = make(map[articleKey]*stagedArticle)
	s.order = nil
	s.mu.Unlock()

	return nil
}

// Clear drops staged and tracked articles. Unflushed changes are lost.
func (s *ArticleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[articleKey]*stagedArticle)
	s.order = nil
	s.managed = make(map[articleKey]*domain.Article)
}

func (s *ArticleStore) write(ctx context.Context, article *domain.Article) (int64, error) {
	query := `
		INSERT INTO articles (
			account_id, external_id, title, author, digest, content,
			content_source_url, cover_url, url, release_time, release_time_source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (account_id, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			digest = EXCLUDED.digest,
			content = EXCLUDED.content,
			content_source_url = EXCLUDED.content_source_url,
			cover_url = EXCLUDED.cover_url,
			url = EXCLUDED.url,
			release_time = EXCLUDED.release_time,
			release_time_source = EXCLUDED.release_time_source,
			updated_at = now()
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.AccountID,
		article.ExternalID,
		article.Title,
		article.Author,
		article.Digest,
		article.Content,
		article.ContentSourceURL,
		article.CoverURL,
		article.URL,
		article.ReleaseTime,
		article.ReleaseTimeSource,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
