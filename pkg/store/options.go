package store

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the default expiry. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxSize sets the size ceiling in bytes. Non-positive values are ignored.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
