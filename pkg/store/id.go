package store

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator returns a new unique identifier.
type IDGenerator func() string

// UUID returns a random (version 4) UUID string.
func UUID() string {
	return uuid.NewString()
}

// ULID returns a lexicographically sortable identifier with 80 bits of
// crypto/rand entropy.
func ULID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
