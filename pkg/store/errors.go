package store

import "errors"

var (
	ErrNotFound  = errors.New("store.not_found")
	ErrMalformed = errors.New("store.malformed")
	ErrTooLarge  = errors.New("store.too_large")
	ErrEmptyKey  = errors.New("store.empty_key")
	ErrBackend   = errors.New("store.backend_failure")
	ErrLockTaken = errors.New("store.lock_not_acquired")
)

var (
	ErrEmptyRedisURL = errors.New("store.redis_empty_url")
	ErrRedisURL      = errors.New("store.redis_invalid_url")
	ErrRedisNotReady = errors.New("store.redis_not_ready")
)
