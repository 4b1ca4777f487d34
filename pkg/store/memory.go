package store

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryBackend keeps values in process memory. Several trackers sharing
// one MemoryBackend behave like browser tabs sharing one cookie jar.
// Safe for concurrent use.
type MemoryBackend struct {
	clock quartz.Clock

	mu      sync.RWMutex
	entries map[string]memoryEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		clock:   quartz.NewReal(),
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithMemoryClock sets the clock used for expiry.
func WithMemoryClock(c quartz.Clock) MemoryOption {
	return func(m *MemoryBackend) {
		if c != nil {
			m.clock = c
		}
	}
}

func (m *MemoryBackend) Read(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	if !m.clock.Now().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent writer may have refreshed the entry.
		if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryBackend) Write(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Lock serializes callers per key. It honors ctx while waiting.
func (m *MemoryBackend) Lock(ctx context.Context, key string) (func(), error) {
	m.locksMu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.locksMu.Unlock()

	if l.TryLock() {
		return l.Unlock, nil
	}

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return l.Unlock, nil
	case <-ctx.Done():
		// Release the lock once the waiter gets it.
		go func() {
			<-acquired
			l.Unlock()
		}()
		return nil, ctx.Err()
	}
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
