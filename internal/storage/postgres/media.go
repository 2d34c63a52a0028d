package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// MediaStore keeps the ordered media references of each article.
type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

// ReplaceForArticle swaps the media list of an article for urls.
func (s *MediaStore) ReplaceForArticle(ctx context.Context, articleID int64, urls []string) error {
	exec := GetExecutor(ctx, s.db)

	_, err := exec.ExecContext(ctx,
		"DELETE FROM article_media WHERE article_id = $1",
		articleID,
	)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}

	if len(urls) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO article_media (article_id, url, position) VALUES ")
	valueArgs := make([]interface{}, 0, len(urls)*2+1)
	valueArgs = append(valueArgs, articleID)

	for i, u := range urls {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($1, $%d, $%d)", i*2+2, i*2+3)
		valueArgs = append(valueArgs, u, i)
	}
	sb.WriteString(" ON CONFLICT (article_id, url) DO NOTHING")

	if _, err := exec.ExecContext(ctx, sb.String(), valueArgs...); err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (s *MediaStore) GetByArticleID(ctx context.Context, articleID int64) ([]string, error) {
	var urls []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &urls,
		"SELECT url FROM article_media WHERE article_id = $1 ORDER BY position",
		articleID,
	)
	return urls, err
}
