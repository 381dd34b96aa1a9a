// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for modularui packages.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so that tests exercising the presentation
// queue, the authoritative loop, and the transports never hang on a
// missing message. They are the only place tests use wall-clock
// timeouts; everything else drives time through lib/clock.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
