package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown calls onExpire once the due date passes. Arm may be called again
// on every page load; onExpire still runs at most once per Countdown.
type Countdown struct {
	clock    clockwork.Clock
	onExpire func()
	fired    atomic.Bool

	mu    sync.Mutex
	timer  clockwork.Timer
	due    time.Time
	closed bool
}

func NewCountdown(clock clockwork.Clock, onExpire func()) *Countdown {
	return &Countdown{clock: clock, onExpire: onExpire}
}

// Arm replaces any armed timer with one expiring at due. A zero due disarms.
func (c *Countdown) Arm(due time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.closed {
		return
	}
	c.due = due
	if due.IsZero() || c.fired.Load() {
		return
	}

	remaining := due.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	c.timer = c.clock.AfterFunc(remaining, c.Fire)
}

// Fire runs the expiry callback unless it already ran.
func (c *Countdown) Fire() {
	if !c.fired.CompareAndSwap(false, true) {
		return
	}
	c.onExpire()
}

// Remaining returns the time left until the due date, zero once it passed and
// -1 when no due date is armed.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.due.IsZero() {
		return -1
	}
	if left := c.due.Sub(c.clock.Now()); left > 0 {
		return left
	}
	return 0
}

func (c *Countdown) Fired() bool {
	return c.fired.Load()
}

// Stop disarms the timer. The one-shot guard is kept.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.due = time.Time{}
}

// Close disarms the timer and makes later Arm calls no-ops.
func (c *Countdown) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
}
