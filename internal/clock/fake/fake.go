// Package fake provides a manually driven clock for deterministic tests.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/overall-progress/internal/clock"
)

// ErrNoTicker is returned by Tick when no running ticker exists.
var ErrNoTicker = errors.New("no running ticker")

// Clock is a clock.Clock whose time and ticks are controlled by the test.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*Ticker
}

// New returns a Clock frozen at now.
func New(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the frozen time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewTicker records a ticker that only fires when Tick is called.
func (c *Clock) NewTicker(d time.Duration) clock.Ticker {
	t := &Ticker{
		Interval: d,
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Tickers returns every ticker created so far.
func (c *Clock) Tickers() []*Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Ticker(nil), c.tickers...)
}

// Tick advances the clock by the newest running ticker's interval and blocks
// until that ticker's receiver takes the tick.
func (c *Clock) Tick(ctx context.Context) error {
	c.mu.Lock()
	var active *Ticker
	for i := len(c.tickers) - 1; i >= 0; i-- {
		if !c.tickers[i].Stopped() {
			active = c.tickers[i]
			break
		}
	}
	if active == nil {
		c.mu.Unlock()
		return ErrNoTicker
	}
	c.now = c.now.Add(active.Interval)
	now := c.now
	c.mu.Unlock()

	select {
	case active.ch <- now:
		return nil
	case <-active.stopped:
		return ErrNoTicker
	case <-ctx.Done():
		return fmt.Errorf("deliver tick: %w", ctx.Err())
	}
}

// Ticker is the fake clock.Ticker.
type Ticker struct {
	Interval time.Duration

	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

// C returns the tick channel.
func (t *Ticker) C() <-chan time.Time {
	return t.ch
}

// Stop marks the ticker stopped. It is safe to call repeatedly.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// Stopped reports whether Stop was called.
func (t *Ticker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
