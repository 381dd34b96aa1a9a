// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration for
// every modularui wire payload.
//
// Widget deltas, Open/Update/Close message bodies, and holders that use
// [holder.CBORCodec] all pass through this package so that the
// authoritative and observing sides agree on a single byte layout. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which keeps the
// "detect changes" comparison and template fingerprints stable.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// [Diagnose] renders a payload in CBOR diagnostic notation for the
// frame dump tool.
//
// # Struct Tag Rules
//
// Types that only ever travel over the sync protocol carry `cbor` tags.
// Types that are also served as JSON (the admin HTTP endpoint, viewer
// identity) carry `json` tags, which fxamacker/cbor reads as a
// fallback. Never put both on one field.
package codec
