package dispatch

import "sync"

// Countdown fires a callback exactly once, when Done has been called n
// times. Calls past zero are ignored.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	fn        func()
}

// NewCountdown creates a countdown over n completions. A countdown over
// zero completions fires on the first Done.
func NewCountdown(n int, fn func()) *Countdown {
	if n < 1 {
		n = 1
	}
	return &Countdown{remaining: n, fn: fn}
}

// Done records one completion, successful or not.
func (c *Countdown) Done() {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return
	}
	c.fired = true
	c.mu.Unlock()

	if c.fn != nil {
		c.fn()
	}
}

// Remaining returns how many completions are still outstanding.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

// Fired reports whether the callback has run.
func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
