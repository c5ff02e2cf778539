// Package clock provides an injectable time source for the components
// that schedule retries and timeouts: the fragment/session layer's ACK
// waits. The flood initiator does not use it; its rounds have no timer.
package clock

import (
	"sync"
	"time"
)

// Clock wraps time.Now so tests can substitute a controllable source
// instead of sleeping real wall-clock time.
type Clock struct {
	mu    sync.Mutex
	nowFn func() time.Time
}

// New returns a Clock backed by the system clock.
func New() *Clock {
	return &Clock{nowFn: time.Now}
}

// NewFixed returns a Clock whose Now() never advances on its own; call
// Advance to move it forward. Intended for tests.
func NewFixed(start time.Time) *Clock {
	c := &Clock{}
	c.nowFn = func() time.Time { return start }
	return c
}

// Now returns the current time according to this clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowFn()
}

// Advance moves a fixed clock forward by d. Only meaningful for clocks
// created with NewFixed.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.nowFn().Add(d)
	c.nowFn = func() time.Time { return next }
}
