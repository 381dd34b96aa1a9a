// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package holder serializes the domain object a UI session is bound to.
//
// The authoritative side encodes its holder into the Open message; the
// observing side decodes it and hands the result to the same template
// builder. A codec therefore only needs to preserve what the builder
// reads (a machine's name and slot count, not its live energy level,
// which travels as widget deltas).
//
// Decoding is all-or-nothing. Any structural mismatch (a truncated
// buffer, trailing garbage, a length prefix pointing past the end)
// fails with an error wrapping [ErrCorruptSyncData], and no holder is
// returned.
package holder

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/modularui/lib/codec"
)

// ErrCorruptSyncData is wrapped by every decode failure.
var ErrCorruptSyncData = errors.New("corrupt sync data")

// Codec encodes and decodes holders of type H. Both directions must be
// pure and deterministic.
type Codec[H any] interface {
	Encode(holder H) ([]byte, error)
	Decode(data []byte) (H, error)
}

// Funcs builds a Codec from an encode/decode pair. Decode errors that
// do not already wrap ErrCorruptSyncData are wrapped.
func Funcs[H any](encode func(H) ([]byte, error), decode func([]byte) (H, error)) Codec[H] {
	return funcCodec[H]{encode: encode, decode: decode}
}

type funcCodec[H any] struct {
	encode func(H) ([]byte, error)
	decode func([]byte) (H, error)
}

func (c funcCodec[H]) Encode(holder H) ([]byte, error) { return c.encode(holder) }

func (c funcCodec[H]) Decode(data []byte) (H, error) {
	holder, err := c.decode(data)
	if err != nil {
		var zero H
		if errors.Is(err, ErrCorruptSyncData) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %v", ErrCorruptSyncData, err)
	}
	return holder, nil
}

// CBORCodec encodes plain struct holders with the shared deterministic
// CBOR configuration. Decoding requires exactly one well-formed data
// item.
type CBORCodec[H any] struct{}

func (CBORCodec[H]) Encode(holder H) ([]byte, error) {
	data, err := codec.Marshal(holder)
	if err != nil {
		return nil, fmt.Errorf("encoding holder: %w", err)
	}
	return data, nil
}

func (CBORCodec[H]) Decode(data []byte) (H, error) {
	var holder H
	if err := codec.Unmarshal(data, &holder); err != nil {
		var zero H
		return zero, fmt.Errorf("%w: %v", ErrCorruptSyncData, err)
	}
	return holder, nil
}
