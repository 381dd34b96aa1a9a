// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"math"
	"sync"
)

// IDAllocator hands out session ids. inUse reports ids that belong to
// live sessions; Next must not return one of them. Zero means the id
// space is exhausted.
type IDAllocator interface {
	Next(inUse func(int32) bool) int32
}

// SequentialIDs counts up from 1 and wraps at math.MaxInt32, skipping
// ids still in use.
type SequentialIDs struct {
	mu   sync.Mutex
	last int32
}

func (a *SequentialIDs) Next(inUse func(int32) bool) int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	candidate := a.last
	for range math.MaxInt32 {
		if candidate == math.MaxInt32 || candidate < 0 {
			candidate = 1
		} else {
			candidate++
		}
		if !inUse(candidate) {
			a.last = candidate
			return candidate
		}
	}
	return 0
}
