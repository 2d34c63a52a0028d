package service

import (
	"context"
	"errors"
	"strings"

	"wechat_sync/internal/domain"
)

// transientKeywords is the fallback for errors that carry no category.
var transientKeywords = []string{
	"timeout",
	"connection",
	"network",
	"service unavailable",
	"rate limit",
}

var terminalErrors = []error{
	domain.ErrInvalidRequest,
	domain.ErrTaskClaimFailed,
	domain.ErrAccountNotFound,
	domain.ErrCredentialUnavailable,
}

// IsRetryable classifies a task-level failure. Typed categories win; the
// message keywords are only consulted for uncategorized errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, terminal := range terminalErrors {
		if errors.Is(err, terminal) {
			return false
		}
	}
	return matchesTransientMessage(err.Error())
}

func matchesTransientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// ShouldRetry combines the retry budget of the task with the error class.
func ShouldRetry(task *domain.SyncTask, err error) bool {
	if task == nil || !task.HasRetryBudget() {
		return false
	}
	return IsRetryable(err)
}
