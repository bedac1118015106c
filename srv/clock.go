package srv

import (
	"sync"
	"time"
)

// RoundClock drives the round/intermission countdown for a room. It
// stores an absolute end instant and fires onExpired exactly once when
// the wall clock reaches it. A 1 Hz tick lets clients animate the
// countdown; the tick is observational only and never moves the
// deadline (no accumulated deltas).
type RoundClock struct {
	mu    sync.Mutex
	endAt time.Time
	fire  *time.Timer
	done  chan struct{}

	onTick    func() // called once per second while running
	onExpired func() // called when the deadline is reached
}

// NewRoundClock creates a stopped clock.
func NewRoundClock(onTick, onExpired func()) *RoundClock {
	return &RoundClock{onTick: onTick, onExpired: onExpired}
}

// Start begins a countdown of the given duration, replacing any
// countdown already running.
func (c *RoundClock) Start(d time.Duration) {
	c.mu.Lock()
	c.stopLocked()
	c.endAt = time.Now().Add(d)
	done := make(chan struct{})
	c.done = done
	c.fire = time.AfterFunc(d, func() { c.expire(done) })
	c.mu.Unlock()

	go c.tickLoop(done)
}

func (c *RoundClock) tickLoop(done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if c.onTick != nil {
				c.onTick()
			}
		}
	}
}

func (c *RoundClock) expire(done chan struct{}) {
	c.mu.Lock()
	if c.done != done {
		// Stale fire from a countdown that was replaced or stopped.
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.mu.Unlock()

	if c.onExpired != nil {
		c.onExpired()
	}
}

// Stop cancels the running countdown, if any.
func (c *RoundClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *RoundClock) stopLocked() {
	if c.fire != nil {
		c.fire.Stop()
		c.fire = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.endAt = time.Time{}
}

// RemainingMs returns the milliseconds until the deadline, or 0 when
// the clock is stopped or past due.
func (c *RoundClock) RemainingMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endAt.IsZero() {
		return 0
	}
	ms := time.Until(c.endAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// Running reports whether a countdown is active.
func (c *RoundClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}
