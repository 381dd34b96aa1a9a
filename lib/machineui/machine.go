// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package machineui is a demo domain for modular UI sync: a processing
// machine that consumes energy to turn work into output items, and the
// factory that builds its panel.
//
// The holder codec carries only what the panel build depends on (name,
// tier, output item name). Everything that changes while the UI is open
// reaches the viewer as widget deltas.
package machineui

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/modularui/holder"
)

// outputHistory bounds the output list.
const outputHistory = 5

// Machine is the holder. Fields are mutated only on the authoritative
// execution context.
type Machine struct {
	Name   string
	Tier   int
	Output string

	Capacity int64
	Energy   int64
	// Input is energy gained per step, Usage energy spent per step of
	// work.
	Input int64
	Usage int64

	Duration int64
	Progress int64
	Running  bool
	Status   string

	Completed int64
	Produced  []string
}

// NewMachine returns a stopped machine with an empty buffer. Per-step
// figures scale with tier.
func NewMachine(name string, tier int, output string) *Machine {
	scale := int64(1) << max(tier-1, 0)
	return &Machine{
		Name:     name,
		Tier:     tier,
		Output:   output,
		Capacity: 1000 * scale,
		Input:    8 * scale,
		Usage:    16,
		Duration: 20,
		Status:   "idle",
	}
}

// Step advances the machine by one unit of work.
func (m *Machine) Step() {
	m.Energy = min(m.Capacity, m.Energy+m.Input)
	if !m.Running {
		m.Status = "idle"
		return
	}
	if m.Energy < m.Usage {
		m.Status = "no power"
		return
	}
	m.Energy -= m.Usage
	m.Progress++
	m.Status = "working"
	if m.Progress >= m.Duration {
		m.Progress = 0
		m.Completed++
		m.Produced = append(m.Produced, fmt.Sprintf("%s #%d", m.Output, m.Completed))
		if len(m.Produced) > outputHistory {
			m.Produced = slices.Clone(m.Produced[len(m.Produced)-outputHistory:])
		}
	}
}

// Codec serializes the build-relevant part of a Machine in the compact
// binary layout: name, tier, output.
var Codec holder.Codec[*Machine] = holder.Funcs(encodeMachine, decodeMachine)

// MaxTier is the highest tier the holder codec carries.
const MaxTier = 16

func encodeMachine(m *Machine) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("encoding nil machine")
	}
	if m.Tier < 0 || m.Tier > MaxTier {
		return nil, fmt.Errorf("encoding machine %q: tier %d outside 0..%d", m.Name, m.Tier, MaxTier)
	}
	var w holder.Writer
	w.WriteString(m.Name)
	w.WriteVarint(int64(m.Tier))
	w.WriteString(m.Output)
	return w.Bytes(), nil
}

func decodeMachine(data []byte) (*Machine, error) {
	r := holder.NewReader(data)
	name := r.ReadString()
	tier := r.ReadVarint()
	output := r.ReadString()
	if err := r.Finish(); err != nil {
		return nil, err
	}
	if tier < 0 || tier > MaxTier {
		return nil, fmt.Errorf("%w: machine tier %d out of range", holder.ErrCorruptSyncData, tier)
	}
	return NewMachine(name, int(tier), output), nil
}
