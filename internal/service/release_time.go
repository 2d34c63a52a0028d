package service

import (
	"time"

	"wechat_sync/internal/domain"
)

// ResolveReleaseTime picks the canonical release time of a raw article:
// publish_time, then update_time, then now. Values that are missing, empty
// or not a positive integer are skipped. The result is always usable.
func ResolveReleaseTime(raw domain.RawArticle, now time.Time) (time.Time, domain.TimeSource) {
	if t, ok := raw.PublishTime.Time(); ok {
		return t, domain.TimeSourcePublish
	}
	if t, ok := raw.UpdateTime.Time(); ok {
		return t, domain.TimeSourceUpdate
	}
	return now.UTC(), domain.TimeSourceCurrent
}

// FormatReleaseTime renders t in the storage layout.
func FormatReleaseTime(t time.Time) string {
	return t.UTC().Format(domain.ReleaseTimeLayout)
}
