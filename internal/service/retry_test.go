package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"wechat_sync/internal/domain"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient sentinel", fmt.Errorf("batchget: %w", domain.ErrTransient), true},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), true},
		{"timeout keyword", errors.New("request timeout"), true},
		{"connection keyword", errors.New("dial tcp: Connection refused"), true},
		{"network keyword", errors.New("network is unreachable"), true},
		{"service unavailable keyword", errors.New("Service Unavailable"), true},
		{"rate limit keyword", errors.New("rate limit exceeded"), true},
		{"invalid account id", errors.New("invalid account id"), false},
		{"invalid request", fmt.Errorf("%w: timeout must be set", domain.ErrInvalidRequest), false},
		{"account missing", domain.ErrAccountNotFound, false},
		{"credential rejected", fmt.Errorf("%w: invalid appsecret", domain.ErrCredentialUnavailable), false},
		{"credential transient", fmt.Errorf("%w: %w", domain.ErrCredentialUnavailable, domain.ErrTransient), true},
		{"cancelled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	timeout := errors.New("timeout")

	assert.True(t, ShouldRetry(&domain.SyncTask{RetryCount: 0, MaxRetries: 3}, timeout))
	assert.True(t, ShouldRetry(&domain.SyncTask{RetryCount: 2, MaxRetries: 3}, timeout))
	assert.False(t, ShouldRetry(&domain.SyncTask{RetryCount: 3, MaxRetries: 3}, timeout))
	assert.False(t, ShouldRetry(&domain.SyncTask{RetryCount: 0, MaxRetries: 3}, errors.New("invalid account id")))
	assert.False(t, ShouldRetry(nil, timeout))
}
