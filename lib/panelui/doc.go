// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package panelui renders modular UI sessions in a terminal with
// bubbletea.
//
// [Presenter] implements client.Presenter. Each call runs on the
// client's presentation queue, snapshots the session's widgets into a
// [Panel], and hands the snapshot to the bubbletea program as a
// message, so the [Model] never touches live widgets. Progress widgets
// render as bars; every other widget renders its String form.
//
// [LogHandler] routes slog records into the program's status line
// instead of stderr, which would corrupt the alt-screen display.
package panelui
