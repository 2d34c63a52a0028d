package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wechat_sync/internal/domain"
)

func TestResolveReleaseTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		raw        domain.RawArticle
		wantTime   string
		wantSource domain.TimeSource
	}{
		{
			name:       "publish time wins over update time",
			raw:        domain.RawArticle{PublishTime: "1704067200", UpdateTime: "1704153600"},
			wantTime:   "2024-01-01 00:00:00",
			wantSource: domain.TimeSourcePublish,
		},
		{
			name:       "update time when publish time is missing",
			raw:        domain.RawArticle{UpdateTime: "1704240000"},
			wantTime:   "2024-01-03 00:00:00",
			wantSource: domain.TimeSourceUpdate,
		},
		{
			name:       "current time when both are missing",
			raw:        domain.RawArticle{},
			wantTime:   "2024-06-01 12:30:00",
			wantSource: domain.TimeSourceCurrent,
		},
		{
			name:       "malformed values fall through",
			raw:        domain.RawArticle{PublishTime: "", UpdateTime: "invalid_timestamp"},
			wantTime:   "2024-06-01 12:30:00",
			wantSource: domain.TimeSourceCurrent,
		},
		{
			name:       "zero publish time is ignored",
			raw:        domain.RawArticle{PublishTime: "0", UpdateTime: "1704240000"},
			wantTime:   "2024-01-03 00:00:00",
			wantSource: domain.TimeSourceUpdate,
		},
		{
			name:       "negative and fractional values are ignored",
			raw:        domain.RawArticle{PublishTime: "-5", UpdateTime: "1704240000.5"},
			wantTime:   "2024-06-01 12:30:00",
			wantSource: domain.TimeSourceCurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source := ResolveReleaseTime(tt.raw, now)

			assert.Equal(t, tt.wantTime, FormatReleaseTime(got))
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestResolveReleaseTime_NeverEmpty(t *testing.T) {
	inputs := []domain.Epoch{"", " ", "abc", "0", "-1", "1e9", "99999999999999999999", "1704067200"}

	for _, publish := range inputs {
		for _, update := range inputs {
			got, source := ResolveReleaseTime(domain.RawArticle{PublishTime: publish, UpdateTime: update}, time.Now())

			formatted := FormatReleaseTime(got)
			_, err := time.Parse(domain.ReleaseTimeLayout, formatted)
			assert.NoError(t, err, "publish=%q update=%q", publish, update)
			assert.NotEmpty(t, source)
		}
	}
}

func TestResolveReleaseTime_CurrentTimeIsNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)

	got, source := ResolveReleaseTime(domain.RawArticle{}, time.Now())

	assert.Equal(t, domain.TimeSourceCurrent, source)
	assert.WithinDuration(t, before, got, 5*time.Second)
}
