package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ReleaseTimeLayout is the storage format of Article.ReleaseTime.
const ReleaseTimeLayout = "2006-01-02 15:04:05"

// Epoch is an untrusted Unix timestamp as delivered by the remote API.
// It accepts JSON strings, numbers and null and keeps the raw text.
type Epoch string

func (e *Epoch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Epoch(s)
		return nil
	}
	*e = Epoch(data)
	return nil
}

// Time returns the timestamp when the value is a positive base-10 integer.
func (e Epoch) Time() (time.Time, bool) {
	s := strings.TrimSpace(string(e))
	if s == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// RawArticle is one article as returned by the remote source. Deleted
// entries still occupy a slot in the source's paging.
type RawArticle struct {
	ExternalID       string
	Deleted          bool
	Title            string
	Author           string
	Digest           string
	Content          string
	ContentSourceURL string
	ThumbMediaID     string
	ThumbURL         string
	URL              string
	PublishTime      Epoch
	UpdateTime       Epoch
}

// TimeSource records which field a release time came from.
type TimeSource string

const (
	TimeSourcePublish TimeSource = "publish_time"
	TimeSourceUpdate  TimeSource = "update_time"
	TimeSourceCurrent TimeSource = "current_time"
)

type Article struct {
	ID                int64      `db:"id"`
	AccountID         string     `db:"account_id"`
	ExternalID        string     `db:"external_id"`
	Title             string     `db:"title"`
	Author            string     `db:"author"`
	Digest            string     `db:"digest"`
	Content           string     `db:"content"`
	ContentSourceURL  string     `db:"content_source_url"`
	CoverURL          string     `db:"cover_url"`
	URL               string     `db:"url"`
	ReleaseTime       string     `db:"release_time"`
	ReleaseTimeSource TimeSource `db:"release_time_source"`
	MediaURLs         []string   `db:"-"`
	IsNew             bool       `db:"-"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// ProcessResult is the outcome of turning one RawArticle into an Article.
type ProcessResult struct {
	Article   *Article
	IsNew     bool
	MediaURLs []string
}
