// Package debouncetest provides a manual clock for testing code built on
// debounce emitters.
package debouncetest

import (
	"sort"
	"sync"
	"time"

	"github.com/aleksclark/editorbind/internal/debounce"
)

// Clock schedules functions on a virtual timeline. Scheduled functions run
// synchronously, on the caller's goroutine, when Advance passes their
// deadline.
type Clock struct {
	mu      sync.Mutex
	now     time.Duration
	timers  []*timer
	created int
}

type timer struct {
	clock   *Clock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// Stop reports whether it stopped a timer that had neither fired nor been
// stopped before.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// New returns a clock at time zero.
func New() *Clock {
	return &Clock{}
}

// AfterFunc implements debounce.AfterFunc.
func (c *Clock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	c.created++
	return t
}

// Option returns the debounce option that makes an emitter use c.
func (c *Clock) Option() debounce.Option {
	return debounce.WithAfterFunc(c.AfterFunc)
}

// Advance moves the clock forward by d, running every timer that comes due
// in deadline order. Timers scheduled by those functions run too if they
// fall inside the window.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*timer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Now returns the elapsed virtual time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Created returns the number of timers ever scheduled.
func (c *Clock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Live returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live++
		}
	}
	return live
}
