package domain

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid sync request")
	ErrTaskClaimFailed       = errors.New("task claim failed")
	ErrAccountNotFound       = errors.New("account not found")
	ErrCredentialUnavailable = errors.New("access credential unavailable")
	ErrNotFound              = errors.New("not found")

	// ErrTransient marks failures worth retrying: network errors, timeouts,
	// upstream overload and rate limiting.
	ErrTransient = errors.New("transient failure")

	// ErrPersistence marks a failed batch flush.
	ErrPersistence = errors.New("persistence failure")
)
