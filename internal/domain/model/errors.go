package model

import "errors"

var (
	// ErrStoreUnavailable marks transient durable-store failures; callers may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("not found")
)
