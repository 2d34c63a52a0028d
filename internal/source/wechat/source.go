package wechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"wechat_sync/internal/domain"
)

const SourceID = "wechat"

// TokenInvalidator forgets access tokens the API has rejected.
type TokenInvalidator interface {
	InvalidateToken(token string)
}

// Source implements service.ArticleSource over the freepublish API.
type Source struct {
	client      *client
	invalidator TokenInvalidator
	logger      *slog.Logger
}

// New creates a new WeChat article source.
func New(cfg Config, logger *slog.Logger) *Source {
	logger = logger.With("source", SourceID)
	return &Source{
		client: newClient(cfg, logger),
		logger: logger,
	}
}

// SetTokenInvalidator registers the token cache to purge on credential errors.
func (s *Source) SetTokenInvalidator(inv TokenInvalidator) {
	s.invalidator = inv
}

// FetchPage returns up to limit published articles starting at offset.
// Each publish record yields exactly one entry: its first non-deleted news
// item, or a Deleted placeholder, so offsets stay in record units.
func (s *Source) FetchPage(ctx context.Context, accessToken string, offset, limit int) ([]domain.RawArticle, error) {
	var resp batchGetResponse
	err := s.client.call(ctx, http.MethodPost, "/cgi-bin/freepublish/batchget",
		url.Values{"access_token": {accessToken}},
		batchGetRequest{Offset: offset, Count: limit, NoContent: 0},
		&resp,
	)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.tokenRejected() && s.invalidator != nil {
			s.invalidator.InvalidateToken(accessToken)
		}
		return nil, fmt.Errorf("batchget offset=%d count=%d: %w", offset, limit, err)
	}

	articles := s.transform(resp.Items)

	s.logger.Debug("fetched page",
		"offset", offset,
		"items", len(resp.Items),
		"articles", len(articles),
		"total_count", resp.TotalCount,
	)

	return articles, nil
}

func (s *Source) transform(items []publishItem) []domain.RawArticle {
	articles := make([]domain.RawArticle, 0, len(items))

	for _, item := range items {
		news, ok := firstLiveNewsItem(item.Content.NewsItems)
		if !ok {
			s.logger.Debug("publish record has no live article", "article_id", item.ArticleID)
			articles = append(articles, domain.RawArticle{
				ExternalID: item.ArticleID,
				Deleted:    true,
			})
			continue
		}

		updateTime := item.UpdateTime
		if strings.TrimSpace(string(updateTime)) == "" {
			updateTime = item.Content.UpdateTime
		}

		articles = append(articles, domain.RawArticle{
			ExternalID:       item.ArticleID,
			Title:            news.Title,
			Author:           news.Author,
			Digest:           news.Digest,
			Content:          news.Content,
			ContentSourceURL: news.ContentSourceURL,
			ThumbMediaID:     news.ThumbMediaID,
			ThumbURL:         news.ThumbURL,
			URL:              news.URL,
			PublishTime:      item.Content.CreateTime,
			UpdateTime:       updateTime,
		})
	}

	return articles
}

func firstLiveNewsItem(items []newsItem) (newsItem, bool) {
	for _, it := range items {
		if !it.IsDeleted {
			return it, true
		}
	}
	return newsItem{}, false
}
