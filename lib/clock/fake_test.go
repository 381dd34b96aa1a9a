// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	fake.Advance(3 * time.Second)
	if got := fake.Now(); !got.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("Now = %v, want %v", got, epoch.Add(3*time.Second))
	}
}

func TestFakeTickerFiresOncePerInterval(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval")
	default:
	}

	fake.Advance(500 * time.Millisecond)
	select {
	case tick := <-ticker.C:
		if !tick.Equal(epoch.Add(time.Second)) {
			t.Errorf("tick time = %v, want %v", tick, epoch.Add(time.Second))
		}
	default:
		t.Fatal("ticker did not fire at its interval")
	}
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	fake.Advance(5 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker channel should hold at most one tick")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()
	if fake.Pending() != 0 {
		t.Fatalf("Pending = %d after Stop, want 0", fake.Pending())
	}
	fake.Advance(2 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeAfterFuncOrder(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	cancelled := fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	if !cancelled.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}

	fake.Advance(5 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("callback order = %v, want [1 3]", order)
	}
}

func TestFakeWaitForWaiters(t *testing.T) {
	t.Parallel()
	fake := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		fake.NewTicker(time.Second)
		close(registered)
	}()
	fake.WaitForWaiters(1)
	<-registered
	if fake.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", fake.Pending())
	}
}
