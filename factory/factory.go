// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package factory defines UI factories and the registry both sides
// use to agree on them.
//
// A factory turns a holder (the data a UI displays) and the viewer it
// is being built for into a [template.Template]. The authoritative
// side builds from its live holder; the observing side decodes the
// holder from the Open message and builds again. Because the build is
// deterministic, the two templates agree on widget ids and kinds.
package factory

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/modularui/holder"
	"github.com/bureau-foundation/modularui/template"
)

// Viewer identifies the participant a UI is opened for.
type Viewer struct {
	// ID is stable for the lifetime of a connection and unique among
	// connected viewers.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name,omitempty"`

	// Automated marks synthetic participants (bots, scripted
	// clients). Opening a UI for one is a silent no-op.
	Automated bool `json:"automated,omitempty"`
}

func (v Viewer) String() string {
	if v.Name == "" {
		return v.ID
	}
	return v.Name + " (" + v.ID + ")"
}

// Factory builds templates for one kind of holder. Implementations
// must be deterministic: given equal holders and viewers, BuildTemplate
// produces templates with the same fingerprint.
type Factory interface {
	// Name is the registry key. It must be unique within a registry.
	Name() string

	// EncodeHolder serializes the holder for the Open message.
	EncodeHolder(h any) ([]byte, error)

	// DecodeHolder reconstructs a holder. Failures wrap
	// holder.ErrCorruptSyncData.
	DecodeHolder(data []byte) (any, error)

	// BuildTemplate constructs a fresh widget tree.
	BuildTemplate(h any, viewer Viewer) (*template.Template, error)
}

// ErrHolderType is returned when a factory receives a holder of a type
// it was not declared with.
var ErrHolderType = errors.New("holder type does not match factory")

// New adapts a typed codec and build function to the Factory
// interface.
func New[H any](name string, codec holder.Codec[H], build func(H, Viewer) (*template.Template, error)) Factory {
	return &typed[H]{name: name, codec: codec, build: build}
}

type typed[H any] struct {
	name  string
	codec holder.Codec[H]
	build func(H, Viewer) (*template.Template, error)
}

func (f *typed[H]) Name() string { return f.name }

func (f *typed[H]) cast(h any) (H, error) {
	typed, ok := h.(H)
	if !ok {
		var zero H
		return zero, fmt.Errorf("factory %q: %w: got %T, want %T", f.name, ErrHolderType, h, zero)
	}
	return typed, nil
}

func (f *typed[H]) EncodeHolder(h any) ([]byte, error) {
	typed, err := f.cast(h)
	if err != nil {
		return nil, err
	}
	data, err := f.codec.Encode(typed)
	if err != nil {
		return nil, fmt.Errorf("factory %q: encoding holder: %w", f.name, err)
	}
	return data, nil
}

func (f *typed[H]) DecodeHolder(data []byte) (any, error) {
	decoded, err := f.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("factory %q: %w", f.name, err)
	}
	return decoded, nil
}

func (f *typed[H]) BuildTemplate(h any, viewer Viewer) (*template.Template, error) {
	typed, err := f.cast(h)
	if err != nil {
		return nil, err
	}
	built, err := f.build(typed, viewer)
	if err != nil {
		return nil, fmt.Errorf("factory %q: building template: %w", f.name, err)
	}
	if built == nil {
		return nil, fmt.Errorf("factory %q: build returned no template", f.name)
	}
	return built, nil
}
