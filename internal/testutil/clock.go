package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the start time of clocks created with a zero start.
var DefaultEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe fake time source for tests.
//
// Each call to Now returns the current time and then advances it by the
// configured step, so consecutive calls are strictly increasing when step
// is positive. Reset rewinds to the start.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewDeterministicClock creates a clock at start advancing by step per
// Now call. A zero start uses DefaultEpoch.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	return &DeterministicClock{start: start, now: start, step: step}
}

// Now returns the current time and advances the clock by one step.
// Its signature matches time.Now so it can be passed as a clock option.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
