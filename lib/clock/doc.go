// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source behind the
// authoritative tick loop.
//
// The session server detects widget changes on a host-driven tick.
// Production code passes Real(); tests pass Fake() and drive ticks by
// calling Advance, so a test can state exactly how many detect/emit
// passes ran:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	server := session.NewServer(session.ServerConfig{Clock: fake, ...})
//	go server.Run(ctx)
//	fake.WaitForWaiters(1)            // ticker registered by Run
//	fake.Advance(50 * time.Millisecond) // exactly one tick
package clock
