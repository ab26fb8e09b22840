package signal

import (
	"sync"
	"time"
)

// Clock tracks logical time as a sample count, independent of wall-clock
// jitter. Deriving chunk start times from the count keeps generated phase
// continuous across chunks even when the generation loop is delayed.
type Clock struct {
	mu      sync.Mutex
	samples int64
	started time.Time
}

// NewClock returns a Clock at sample index zero.
func NewClock() *Clock {
	return &Clock{started: time.Now()}
}

// Reset sets the sample index back to zero and restarts the uptime reference.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = 0
	c.started = time.Now()
}

// Advance adds n samples to the index.
func (c *Clock) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples += int64(n)
}

// SampleIndex returns the current sample count.
func (c *Clock) SampleIndex() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

// Uptime returns wall time elapsed since the last Reset. Diagnostic only;
// generated signal time never depends on it.
func (c *Clock) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.started)
}
