// Package testutil provides deterministic clock and id implementations
// for controller and harness tests.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock for tests. Each Now() call returns
// the current instant and advances by a fixed step, so dispatch and
// completion timestamps — and the durations derived from them — are
// byte-stable across runs.
//
// A zero step freezes the clock: every Now() returns the same instant
// and all durations collapse to zero. Golden-file tests use a frozen
// clock so transcripts contain no varying fields.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though the controller's serial handling means calls do not
// actually race.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// Epoch is the default start instant for deterministic clocks.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewClock creates a deterministic clock starting at start, advancing by
// step on every Now() call.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// NewFrozenClock creates a clock that always returns Epoch.
func NewFrozenClock() *Clock {
	return NewClock(Epoch, 0)
}

// Now returns the clock's current instant and advances it by the step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set repositions the clock. The next Now() returns t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
