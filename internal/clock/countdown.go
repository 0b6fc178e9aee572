package clock

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCountdownStarted is returned when Start is called twice.
	ErrCountdownStarted = errors.New("countdown already started")
	// ErrCountdownStopped is returned when Start is called after Stop.
	ErrCountdownStopped = errors.New("countdown stopped")
	// ErrInvalidDuration is returned for a non-positive countdown length.
	ErrInvalidDuration = errors.New("countdown duration must be positive")
)

// Countdown emits the remaining whole seconds once per interval until a deadline passes.
// Remaining time is derived from the clock on every tick, so late or coalesced ticks never
// make it drift from real elapsed time. A Countdown is single use.
type Countdown struct {
	clock    Clock
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	quit    chan struct{}

	// deliverMu is held while onTick runs so Stop can wait for an in-flight tick.
	deliverMu sync.Mutex
}

// NewCountdown creates a countdown ticking every interval (one second when interval <= 0).
func NewCountdown(c Clock, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		clock:    c,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

// Start begins ticking. onTick receives the remaining seconds (always > 0); onExpire fires exactly
// once when the remaining time reaches zero, after which no more ticks are delivered.
// onTick must not call Stop.
func (c *Countdown) Start(total time.Duration, onTick func(remaining int), onExpire func()) error {
	if total <= 0 {
		return ErrInvalidDuration
	}
	if onTick == nil {
		onTick = func(int) {}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrCountdownStopped
	}
	if c.started {
		return ErrCountdownStarted
	}
	c.started = true

	deadline := c.clock.Now().Add(total)
	ticker := c.clock.NewTicker(c.interval)
	go c.run(ticker, deadline, onTick, onExpire)
	return nil
}

// Stop halts the countdown. It is idempotent, and once it returns no tick or expiry is delivered.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.quit)
	c.mu.Unlock()

	// Wait out a tick that passed the stopped check before we flipped it.
	c.deliverMu.Lock()
	c.deliverMu.Unlock()
}

// running reports whether the countdown has started and not yet stopped or expired.
func (c *Countdown) running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.stopped
}

func (c *Countdown) run(ticker Ticker, deadline time.Time, onTick func(int), onExpire func()) {
	defer ticker.Stop()
	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C():
		}

		remaining := RemainingSeconds(deadline, c.clock.Now())
		if remaining > 0 {
			if !c.deliver(func() { onTick(remaining) }) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		c.stopped = true
		close(c.quit)
		c.mu.Unlock()

		if onExpire != nil {
			onExpire()
		}
		return
	}
}

func (c *Countdown) deliver(fn func()) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return false
	}
	fn()
	return true
}
