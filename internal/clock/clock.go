package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Scheduler hands out periodic tickers.
type Scheduler interface {
	NewTicker(d time.Duration) Ticker
}

// Real is backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop() { r.t.Stop() }

// Fake is deterministic and test-friendly. Time only moves on Set or
// Advance, and tickers fire when simulated time crosses their next deadline.
type Fake struct {
	mu      sync.Mutex
	t       time.Time
	tickers []*fakeTicker
}

func NewFake(start time.Time) *Fake {
	return &Fake{t: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.fireLocked()
	c.mu.Unlock()
}

func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.fireLocked()
	c.mu.Unlock()
}

func (c *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ft := &fakeTicker{
		owner:  c,
		period: d,
		next:   c.t.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ft)
	return ft
}

// Tickers reports how many tickers are currently active.
func (c *Fake) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *Fake) fireLocked() {
	for _, ft := range c.tickers {
		if c.t.Before(ft.next) {
			continue
		}
		// Like time.Ticker: one buffered slot, missed ticks are dropped.
		select {
		case ft.ch <- c.t:
		default:
		}
		for !c.t.Before(ft.next) {
			ft.next = ft.next.Add(ft.period)
		}
	}
}

func (c *Fake) remove(ft *fakeTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tickers {
		if t == ft {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

type fakeTicker struct {
	owner  *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop() { f.owner.remove(f) }
