package wechat

import (
	"fmt"

	"wechat_sync/internal/domain"
)

// WeChat error codes that the worker treats specially.
const (
	codeSystemBusy        = -1
	codeInvalidCredential = 40001
	codeInvalidToken      = 40014
	codeTokenExpired      = 42001
	codeFreqLimit         = 45009
	codeMinuteQuota       = 45011
)

// APIError is a non-zero errcode returned in a WeChat response body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api error %d: %s", e.Code, e.Message)
}

// Unwrap exposes the error category to errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeSystemBusy, codeFreqLimit, codeMinuteQuota:
		return domain.ErrTransient
	case codeInvalidCredential, codeInvalidToken, codeTokenExpired:
		return domain.ErrCredentialUnavailable
	default:
		return nil
	}
}

func (e *APIError) tokenRejected() bool {
	switch e.Code {
	case codeInvalidCredential, codeInvalidToken, codeTokenExpired:
		return true
	}
	return false
}

// StatusError is an unexpected HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == 429 || e.StatusCode >= 500 {
		return domain.ErrTransient
	}
	return nil
}
