package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wechat_sync/internal/domain"
	"wechat_sync/internal/service/mocks"
)

type ArticleProcessorTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	articles  *mocks.MockArticleRepository
	processor *ArticleProcessor
	now       time.Time
}

func TestArticleProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ArticleProcessorTestSuite))
}

func (s *ArticleProcessorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.articles = mocks.NewMockArticleRepository(s.ctrl)
	s.processor = NewArticleProcessor(s.articles)
	s.now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.processor.now = func() time.Time { return s.now }
}

func (s *ArticleProcessorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func rawArticle() domain.RawArticle {
	return domain.RawArticle{
		ExternalID:  "m1",
		Title:       "Hello",
		Author:      "Ann",
		Digest:      "digest",
		Content:     `<img data-src="https://mmbiz.qpic.cn/a.jpg"><img data-src="https://mmbiz.qpic.cn/b.jpg">`,
		ThumbURL:    "https://mmbiz.qpic.cn/cover.jpg",
		URL:         "https://mp.weixin.qq.com/s/m1",
		PublishTime: "1704067200",
	}
}

func (s *ArticleProcessorTestSuite) TestProcess_NewArticle() {
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(nil, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *domain.Article) (bool, error) {
			s.Equal("a1", a.AccountID)
			s.Equal("m1", a.ExternalID)
			s.Equal("Hello", a.Title)
			s.Equal("https://mmbiz.qpic.cn/cover.jpg", a.CoverURL)
			s.Equal("2024-01-01 00:00:00", a.ReleaseTime)
			s.Equal(domain.TimeSourcePublish, a.ReleaseTimeSource)
			return true, nil
		})

	res, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)

	s.Require().NoError(err)
	s.True(res.IsNew)
	s.True(res.Article.IsNew)
	s.Equal([]string{
		"https://mmbiz.qpic.cn/cover.jpg",
		"https://mmbiz.qpic.cn/a.jpg",
		"https://mmbiz.qpic.cn/b.jpg",
	}, res.MediaURLs)
}

func (s *ArticleProcessorTestSuite) TestProcess_SecondCallIsUpdate() {
	var stored *domain.Article
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").
		DoAndReturn(func(context.Context, string, string) (*domain.Article, error) {
			return stored, nil
		}).Times(2)
	s.articles.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *domain.Article) (bool, error) {
			isNew := stored == nil
			stored = a
			return isNew, nil
		}).Times(2)

	first, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)
	s.Require().NoError(err)
	s.True(first.IsNew)

	second, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)
	s.Require().NoError(err)
	s.False(second.IsNew)
	s.Same(first.Article, second.Article)
	s.Empty(second.MediaURLs)
}

func (s *ArticleProcessorTestSuite) TestProcess_ExistingArticleOnlyNewMedia() {
	existing := &domain.Article{
		ID:         7,
		AccountID:  "a1",
		ExternalID: "m1",
		MediaURLs:  []string{"https://mmbiz.qpic.cn/cover.jpg", "https://mmbiz.qpic.cn/a.jpg"},
	}
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(existing, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), existing).Return(false, nil)

	res, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)

	s.Require().NoError(err)
	s.False(res.IsNew)
	s.Equal(int64(7), res.Article.ID)
	s.Equal([]string{"https://mmbiz.qpic.cn/b.jpg"}, res.MediaURLs)
	s.Len(res.Article.MediaURLs, 3)
}

func (s *ArticleProcessorTestSuite) TestProcess_ForceDownloadReturnsAllMedia() {
	existing := &domain.Article{
		ID:         7,
		AccountID:  "a1",
		ExternalID: "m1",
		MediaURLs:  []string{"https://mmbiz.qpic.cn/cover.jpg", "https://mmbiz.qpic.cn/a.jpg", "https://mmbiz.qpic.cn/b.jpg"},
	}
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(existing, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), existing).Return(false, nil)

	res, err := s.processor.Process(context.Background(), rawArticle(), "a1", true)

	s.Require().NoError(err)
	s.Len(res.MediaURLs, 3)
}

func (s *ArticleProcessorTestSuite) TestProcess_FallbackToCurrentTime() {
	raw := rawArticle()
	raw.PublishTime = ""
	raw.UpdateTime = "invalid_timestamp"

	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(nil, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(true, nil)

	res, err := s.processor.Process(context.Background(), raw, "a1", false)

	s.Require().NoError(err)
	s.Equal("2024-06-01 00:00:00", res.Article.ReleaseTime)
	s.Equal(domain.TimeSourceCurrent, res.Article.ReleaseTimeSource)
}

func (s *ArticleProcessorTestSuite) TestProcess_MissingExternalID() {
	raw := rawArticle()
	raw.ExternalID = ""

	_, err := s.processor.Process(context.Background(), raw, "a1", false)

	s.ErrorIs(err, errMissingExternalID)
}

func (s *ArticleProcessorTestSuite) TestProcess_UpsertError() {
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(nil, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(false, errors.New("boom"))

	_, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)

	s.Error(err)
}

// stagingRepository mirrors the unit-of-work behaviour of the postgres
// store: upserts stay pending and visible to lookups until Flush.
type stagingRepository struct {
	pending map[string]*domain.Article
	stored  map[string]*domain.Article
	flushes int
}

func newStagingRepository() *stagingRepository {
	return &stagingRepository{
		pending: make(map[string]*domain.Article),
		stored:  make(map[string]*domain.Article),
	}
}

func (r *stagingRepository) FindByExternalID(_ context.Context, accountID, externalID string) (*domain.Article, error) {
	key := accountID + "/" + externalID
	if a, ok := r.pending[key]; ok {
		return a, nil
	}
	if a, ok := r.stored[key]; ok {
		return a, nil
	}
	return nil, nil
}

func (r *stagingRepository) Upsert(_ context.Context, article *domain.Article) (bool, error) {
	key := article.AccountID + "/" + article.ExternalID
	_, pending := r.pending[key]
	_, stored := r.stored[key]
	r.pending[key] = article
	return !pending && !stored, nil
}

func (r *stagingRepository) Flush(context.Context) error {
	r.flushes++
	for k, a := range r.pending {
		r.stored[k] = a
	}
	r.pending = make(map[string]*domain.Article)
	return nil
}

func (r *stagingRepository) Clear() {
	r.pending = make(map[string]*domain.Article)
}

func (s *ArticleProcessorTestSuite) TestProcess_RepeatBeforeFlushIsUpdate() {
	repo := newStagingRepository()
	processor := NewArticleProcessor(repo)

	first, err := processor.Process(context.Background(), rawArticle(), "a1", false)
	s.Require().NoError(err)
	s.True(first.IsNew)

	second, err := processor.Process(context.Background(), rawArticle(), "a1", false)
	s.Require().NoError(err)
	s.False(second.IsNew)
	s.False(second.Article.IsNew)
	s.Empty(second.MediaURLs)

	s.Require().NoError(repo.Flush(context.Background()))
	s.Len(repo.stored, 1)
}

func (s *ArticleProcessorTestSuite) TestProcess_PresenceDecidesIsNew() {
	existing := &domain.Article{ID: 9, AccountID: "a1", ExternalID: "m1"}
	s.articles.EXPECT().FindByExternalID(gomock.Any(), "a1", "m1").Return(existing, nil)
	s.articles.EXPECT().Upsert(gomock.Any(), existing).Return(true, nil)

	res, err := s.processor.Process(context.Background(), rawArticle(), "a1", false)

	s.Require().NoError(err)
	s.False(res.IsNew)
}
