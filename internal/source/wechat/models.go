package wechat

import "wechat_sync/internal/domain"

type apiStatus struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type batchGetRequest struct {
	Offset    int `json:"offset"`
	Count     int `json:"count"`
	NoContent int `json:"no_content"`
}

// batchGetResponse is the freepublish/batchget payload.
type batchGetResponse struct {
	TotalCount int           `json:"total_count"`
	ItemCount  int           `json:"item_count"`
	Items      []publishItem `json:"item"`
}

type publishItem struct {
	ArticleID  string         `json:"article_id"`
	Content    publishContent `json:"content"`
	UpdateTime domain.Epoch   `json:"update_time"`
}

type publishContent struct {
	NewsItems  []newsItem   `json:"news_item"`
	CreateTime domain.Epoch `json:"create_time"`
	UpdateTime domain.Epoch `json:"update_time"`
}

type newsItem struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Digest           string `json:"digest"`
	Content          string `json:"content"`
	ContentSourceURL string `json:"content_source_url"`
	ThumbMediaID     string `json:"thumb_media_id"`
	ThumbURL         string `json:"thumb_url"`
	URL              string `json:"url"`
	IsDeleted        bool   `json:"is_deleted"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
