// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the modularui
// server and viewer binaries.
//
// Configuration is loaded from a single file named either by the
// MODULARUI_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no per-field
// environment override, so the file is the whole truth.
//
// The file may carry environment sections (development, staging,
// production) that override base values when [Config].Environment
// matches. Production without an explicit section gets stricter
// defaults: JSON logs and a smaller payload limit.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Protocol, Viewer, Log
//   - [Default] -- a Config usable without any file
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other modularui packages.
package config
