// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"sync"
)

// Queue is the single-threaded presentation context: tasks run one at
// a time on the goroutine calling Run, in the order they were
// enqueued. Enqueue never blocks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends fn. It reports false, dropping fn, once the queue is
// closed.
func (q *Queue) Enqueue(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	q.signal()
	return true
}

// Close stops accepting tasks. Run finishes the tasks already queued
// and returns.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run executes tasks until Close has been called and the queue is
// drained, or ctx is cancelled. Tasks still queued at cancellation are
// dropped. Run must not be called concurrently with itself.
func (q *Queue) Run(ctx context.Context) {
	for {
		q.mu.Lock()
		tasks := q.tasks
		q.tasks = nil
		closed := q.closed
		q.mu.Unlock()

		for _, task := range tasks {
			if ctx.Err() != nil {
				return
			}
			task()
		}
		if len(tasks) > 0 {
			continue
		}
		if closed {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}
