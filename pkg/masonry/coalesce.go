package masonry

import (
	"sync"
	"time"
)

// Coalescer merges bursts of triggers into a single call. The first trigger
// opens a window of length d; further triggers inside the window are folded
// into one call of fn when the window closes.
type Coalescer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	timer   *time.Timer
	pending bool
	stopped bool
}

// NewCoalescer returns a coalescer that calls fn at most once per window d.
func NewCoalescer(d time.Duration, fn func()) *Coalescer {
	return &Coalescer{d: d, fn: fn}
}

// Trigger schedules a call of fn.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.d, c.fire)
	}
}

// Flush runs a pending call immediately instead of waiting for the window.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	pending := c.pending && !c.stopped
	c.pending = false
	c.mu.Unlock()

	if pending {
		c.fn()
	}
}

// Stop discards any pending call and ignores later triggers.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	c.timer = nil
	pending := c.pending && !c.stopped
	c.pending = false
	c.mu.Unlock()

	if pending {
		c.fn()
	}
}
