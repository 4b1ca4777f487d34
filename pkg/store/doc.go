// Package store implements the durable key-value slot that holds the
// tracker's identity record.
//
// Store adds the pieces every backend shares: JSON serialization, URL
// encoding, a size ceiling measured against the value's Set-Cookie form
// (90% of 4093 bytes), TTLs and identifier generation. Oversized writes are
// dropped with a warning and ErrTooLarge; the previous value survives.
// Missing, expired and undecodable values surface as ErrNotFound and
// ErrMalformed, which callers treat as "no prior identity".
//
// Store never caches. Other processes or tabs may rewrite the slot at any
// time, so callers re-read before every mutation.
//
// # Backends
//
//   - MemoryBackend: process-local, expiry driven by a quartz.Clock.
//   - RedisBackend: shared across processes via go-redis.
//   - CookieBackend: HTTP cookies through a request-scoped cookie.Jar,
//     optionally signed.
//
// Memory and Redis backends implement Locker, an advisory per-key lock the
// tracker holds around each read-modify-write of its record.
//
// # Usage
//
//	st := store.New(store.NewMemoryBackend())
//	_ = st.Set(ctx, "alytica_c1", record)
//	var rec Record
//	if err := st.Get(ctx, "alytica_c1", &rec); errors.Is(err, store.ErrNotFound) {
//	    // bootstrap a new identity
//	}
package store
