package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/alytica/pkg/logger"
)

const (
	// DefaultTTL is how long a record survives without being rewritten.
	DefaultTTL = 365 * 24 * time.Hour

	// cookieSizeCeiling is the conservative per-cookie limit of browsers.
	cookieSizeCeiling = 4093

	// DefaultMaxSize leaves headroom below the ceiling so the storage
	// medium never truncates a value silently.
	DefaultMaxSize = cookieSizeCeiling * 9 / 10
)

var sizeReference = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Backend persists raw string values under keys.
// Read returns ErrNotFound for missing or expired keys.
type Backend interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Locker is implemented by backends that can serialize read-modify-write
// cycles across goroutines or processes sharing the same key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Store is the durable key-value slot used for identity records.
// It serializes values as JSON, URL-encodes them and refuses writes whose
// cookie representation would exceed the size ceiling. Store never caches:
// every Get reaches the backend, because other processes or browser tabs
// may have changed the value in between.
type Store struct {
	backend Backend
	ttl     time.Duration
	maxSize int
	newID   IDGenerator
	logger  *slog.Logger
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		maxSize: DefaultMaxSize,
		newID:   UUID,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Set stores value under key with the default TTL.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

// SetWithTTL stores value under key. Oversized values are dropped with a
// warning and ErrTooLarge; the previous value, if any, stays in place.
func (s *Store) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMalformed, err)
	}
	encoded := encodeComponent(string(data))

	if size := serializedSize(key, encoded, ttl); size > s.maxSize {
		s.logger.WarnContext(ctx, "store: value too large, write dropped",
			logger.Key(key),
			logger.Size(size),
		)
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, s.maxSize)
	}

	if err := s.backend.Write(ctx, key, encoded, ttl); err != nil {
		return errors.Join(ErrBackend, err)
	}
	return nil
}

// Get decodes the value stored under key into dest.
// Missing or expired keys return ErrNotFound; values that cannot be
// decoded return ErrMalformed.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := s.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Join(ErrBackend, err)
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return errors.Join(ErrMalformed, err)
	}
	if err := json.Unmarshal([]byte(decoded), dest); err != nil {
		return errors.Join(ErrMalformed, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return errors.Join(ErrBackend, err)
	}
	return nil
}

// GenerateID returns a new unique identifier.
func (s *Store) GenerateID() string {
	return s.newID()
}

// Lock takes the backend's advisory lock for key. Backends without locking
// support return a no-op unlock.
func (s *Store) Lock(ctx context.Context, key string) (func(), error) {
	if l, ok := s.backend.(Locker); ok {
		return l.Lock(ctx, key)
	}
	return func() {}, nil
}

// encodeComponent escapes s like JavaScript's encodeURIComponent, so the
// browser SDK can decode the value with decodeURIComponent. QueryEscape
// writes spaces as "+", which decodeURIComponent keeps literally.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// serializedSize measures the value in the cookie string the browser SDK
// writes: "name=value;expires=<UTC date>;path=/;SameSite=Lax". Only the
// length of the expiry date matters, so a fixed reference time is used.
func serializedSize(key, encoded string, ttl time.Duration) int {
	expires := sizeReference.Add(ttl).Format(http.TimeFormat)
	return len(key) + len("=") + len(encoded) + len(";expires=") + len(expires) + len(";path=/;SameSite=Lax")
}
