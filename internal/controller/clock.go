package controller

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies wall time for dispatch and completion timestamps.
// Production uses SystemClock; tests inject a deterministic clock so
// audit traces are byte-stable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces flow ids. The id is an opaque handle the executor
// echoes on every subsequent turn; nothing parses it.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow ids, so retained
// flows list in creation order when sorted lexically.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string. Panics only if the
// host's entropy source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
