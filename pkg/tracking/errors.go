package tracking

import "errors"

var (
	ErrMissingClientID       = errors.New("tracking: client id is required")
	ErrInvalidSessionTimeout = errors.New("tracking: session timeout must not be negative")
	ErrInvalidMaxRetries     = errors.New("tracking: max retries must not be negative")
)
