package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wechat_sync/internal/domain"
)

var errMissingExternalID = errors.New("article has no external id")

// ArticleProcessor turns raw remote articles into persisted articles.
type ArticleProcessor struct {
	articles ArticleRepository
	now      func() time.Time
}

func NewArticleProcessor(articles ArticleRepository) *ArticleProcessor {
	return &ArticleProcessor{
		articles: articles,
		now:      time.Now,
	}
}

// Process upserts one article keyed by its external id and returns the
// media URLs that still need downloading. Nothing is dispatched here.
func (p *ArticleProcessor) Process(ctx context.Context, raw domain.RawArticle, accountID string, forceDownload bool) (*domain.ProcessResult, error) {
	externalID := strings.TrimSpace(raw.ExternalID)
	if externalID == "" {
		return nil, errMissingExternalID
	}

	existing, err := p.articles.FindByExternalID(ctx, accountID, externalID)
	if err != nil {
		return nil, fmt.Errorf("find article %s: %w", externalID, err)
	}

	article := existing
	if article == nil {
		article = &domain.Article{
			AccountID:  accountID,
			ExternalID: externalID,
		}
	}
	knownMedia := article.MediaURLs

	article.Title = raw.Title
	article.Author = raw.Author
	article.Digest = raw.Digest
	article.Content = raw.Content
	article.ContentSourceURL = raw.ContentSourceURL
	article.CoverURL = raw.ThumbURL
	article.URL = raw.URL

	releaseTime, source := ResolveReleaseTime(raw, p.now())
	article.ReleaseTime = FormatReleaseTime(releaseTime)
	article.ReleaseTimeSource = source

	media := ExtractMediaURLs(raw.Content, raw.ThumbURL)
	article.MediaURLs = media

	// Presence decides is_new: FindByExternalID also sees staged articles.
	isNew := existing == nil
	if _, err := p.articles.Upsert(ctx, article); err != nil {
		return nil, fmt.Errorf("upsert article %s: %w", externalID, err)
	}
	article.IsNew = isNew

	toDownload := media
	if !isNew && !forceDownload {
		toDownload = newMediaOnly(media, knownMedia)
	}

	return &domain.ProcessResult{
		Article:   article,
		IsNew:     isNew,
		MediaURLs: toDownload,
	}, nil
}
