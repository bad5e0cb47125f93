// Package testutil provides deterministic test doubles: a settable wall
// clock and a fixed refresh-cycle token. Both exist so that window
// cutoffs, snapshot timestamps, and golden files are byte-identical
// across runs.
package testutil

import (
	"sync"
	"time"
)

// FakeClock is a settable wall clock for tests.
//
// Unlike time.Now, FakeClock only moves when told to. Components that
// accept a Now func (window.Config, producer params, scheduler params)
// take the Now method value and become fully deterministic.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock pinned to start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the clock's current time without advancing it.
//
// Repeated calls return the same instant until Advance or Set moves the
// clock, so a query and the snapshot built from it agree on "now".
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
//
// Negative d moves the clock backwards; tests that replay out-of-order
// arrivals rely on that.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set pins the clock to t.
//
// Used for test reuse: the same scenario can run repeatedly from the
// same instant.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
