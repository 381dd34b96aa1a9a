// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
)

// ErrUnregistered is returned for a factory (or factory id) the
// registry does not know.
var ErrUnregistered = errors.New("factory not registered")

// ErrFrozen is returned by Register after Freeze.
var ErrFrozen = errors.New("factory registry is frozen")

// Registry maps factories to small integer ids for the wire. Ids are
// assigned in registration order starting at 1, so both sides must
// register the same factories in the same order. Register everything
// at startup and then call Freeze. Lookups take a read lock and are
// safe from any goroutine.
type Registry struct {
	mu        sync.RWMutex
	frozen    bool
	factories []Factory
	byName    map[string]uint16
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]uint16)}
}

// Register adds f and returns its id.
func (r *Registry) Register(f Factory) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return 0, ErrFrozen
	}
	name := f.Name()
	if name == "" {
		return 0, errors.New("factory name is empty")
	}
	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("factory %q already registered", name)
	}
	if len(r.factories) >= math.MaxInt16 {
		return 0, fmt.Errorf("factory %q: registry full (%d factories)", name, len(r.factories))
	}
	r.factories = append(r.factories, f)
	id := uint16(len(r.factories))
	r.byName[name] = id
	return id, nil
}

// MustRegister is Register for init-time wiring. It panics on error.
func (r *Registry) MustRegister(f Factory) uint16 {
	id, err := r.Register(f)
	if err != nil {
		panic("factory: " + err.Error())
	}
	return id
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// IDFor returns the wire id of a registered factory.
func (r *Registry) IDFor(f Factory) (uint16, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[f.Name()]
	if !ok || !sameFactory(r.factories[id-1], f) {
		return 0, fmt.Errorf("%w: %q", ErrUnregistered, f.Name())
	}
	return id, nil
}

// sameFactory reports whether a and b are the same registered factory.
// Factories whose dynamic value cannot be compared with == (value
// types holding slices, maps or funcs) match on type and name.
func sameFactory(a, b Factory) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return a.Name() == b.Name()
}

// FactoryFor returns the factory with the given wire id.
func (r *Registry) FactoryFor(id uint16) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.factories) {
		return nil, fmt.Errorf("%w: id %d", ErrUnregistered, id)
	}
	return r.factories[id-1], nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.factories[id-1], true
}

// Names returns registered names in id order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.factories))
	for i, f := range r.factories {
		names[i] = f.Name()
	}
	return names
}
