// Package id mints identifiers for trades and journal rows.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Monotonic entropy keeps IDs minted within the same millisecond
// lexicographically increasing, so rows written in one cycle retain their
// insertion order when sorted by ID.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New mints a ULID string. IDs sort by creation time, so they double as the
// journal's natural ordering and index well in SQLite.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// Time extracts the creation time embedded in an identifier. Input that is
// not a ULID reports the zero time.
func Time(s string) time.Time {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
