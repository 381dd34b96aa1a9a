// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a deterministic Clock. Time moves only when Advance is
// called. Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	interval time.Duration  // non-zero for tickers
	channel  chan time.Time // tickers
	callback func()         // AfterFunc
	stopped  bool
}

// Fake returns a FakeClock frozen at initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires each time the clock crosses
// a multiple of d from now.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	channel := make(chan time.Time, 1)
	waiter := &fakeWaiter{interval: d, channel: channel}
	c.add(waiter, d)
	return &Ticker{C: channel, stop: func() { c.stopWaiter(waiter) }}
}

// AfterFunc registers f to run synchronously inside the Advance call
// that crosses its deadline. With d <= 0, f runs before AfterFunc
// returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}
	waiter := &fakeWaiter{callback: f}
	c.add(waiter, d)
	return &Timer{stop: func() bool { return c.stopWaiter(waiter) }}
}

func (c *FakeClock) add(waiter *fakeWaiter, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiter.deadline = c.current.Add(d)
	c.waiters = append(c.waiters, waiter)
	c.changed.Broadcast()
}

func (c *FakeClock) stopWaiter(waiter *fakeWaiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, pending := range c.waiters {
		if pending == waiter {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			waiter.stopped = true
			c.changed.Broadcast()
			return true
		}
	}
	return false
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline is crossed in deadline order. A ticker crossed several
// times fires once per interval; sends that find the channel full are
// dropped, matching time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.current.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.waiters, func(i, j int) bool {
			return c.waiters[i].deadline.Before(c.waiters[j].deadline)
		})
		if len(c.waiters) == 0 || c.waiters[0].deadline.After(target) {
			c.current = target
			c.mu.Unlock()
			return
		}
		waiter := c.waiters[0]
		c.current = waiter.deadline
		if waiter.interval > 0 {
			waiter.deadline = waiter.deadline.Add(waiter.interval)
		} else {
			c.waiters = c.waiters[1:]
		}
		now := c.current
		c.mu.Unlock()

		if waiter.callback != nil {
			waiter.callback()
			continue
		}
		select {
		case waiter.channel <- now:
		default:
		}
	}
}

// WaitForWaiters blocks until at least n tickers or timers are
// registered. Use it to avoid advancing before a goroutine has
// created its ticker.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.changed.Wait()
	}
}

// Pending returns the number of registered tickers and timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
