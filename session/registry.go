// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// EventKind distinguishes registry events.
type EventKind int

const (
	// EventOpened fires after a session is registered and bound as
	// its viewer's active UI. It is the last step of Open.
	EventOpened EventKind = iota + 1

	// EventClosed fires after a session is removed.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to registry subscribers.
type Event struct {
	Kind    EventKind
	Session *Session
	// Reason is set for EventClosed.
	Reason string
}

// Listener receives registry events. Listeners run synchronously on
// the goroutine that changed the registry, outside the registry lock;
// they may call back into the registry but should not block.
type Listener func(Event)

// Registry maps session ids to live sessions and tracks each viewer's
// active session. At most one session per viewer is registered.
type Registry struct {
	mu       sync.Mutex
	sessions map[int32]*Session
	active   map[string]*Session

	// viewerLocks serializes close-then-open per viewer. Entries are
	// reference counted and removed when the last holder unlocks.
	viewerLocks map[string]*viewerLock

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

type viewerLock struct {
	mu   sync.Mutex
	refs int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[int32]*Session),
		active:      make(map[string]*Session),
		viewerLocks: make(map[string]*viewerLock),
		listeners:   make(map[int]Listener),
	}
}

// Subscribe adds a listener and returns a function that removes it.
func (r *Registry) Subscribe(listener Listener) (unsubscribe func()) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	key := r.nextListener
	r.nextListener++
	r.listeners[key] = listener
	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, key)
		r.listenersMu.Unlock()
	}
}

func (r *Registry) publish(event Event) {
	r.listenersMu.Lock()
	keys := make([]int, 0, len(r.listeners))
	for key := range r.listeners {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	listeners := make([]Listener, len(keys))
	for i, key := range keys {
		listeners[i] = r.listeners[key]
	}
	r.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// lockViewer acquires the per-viewer critical section and returns the
// matching unlock.
func (r *Registry) lockViewer(viewerID string) (unlock func()) {
	r.mu.Lock()
	lock, ok := r.viewerLocks[viewerID]
	if !ok {
		lock = &viewerLock{}
		r.viewerLocks[viewerID] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		r.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.viewerLocks, viewerID)
		}
		r.mu.Unlock()
	}
}

// register adds s and binds it as its viewer's active session.
func (r *Registry) register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.id]; exists {
		return fmt.Errorf("session %d already registered", s.id)
	}
	if current, exists := r.active[s.viewer.ID]; exists {
		return fmt.Errorf("viewer %s already has active session %d", s.viewer.ID, current.id)
	}
	r.sessions[s.id] = s
	r.active[s.viewer.ID] = s
	return nil
}

// remove unregisters the session with the given id. It reports false
// when no such session was registered.
func (r *Registry) remove(id int32) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	if r.active[s.viewer.ID] == s {
		delete(r.active, s.viewer.ID)
	}
	return s, true
}

// Lookup returns the live session with the given id.
func (r *Registry) Lookup(id int32) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ActiveFor returns the viewer's active session, or nil.
func (r *Registry) ActiveFor(viewerID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[viewerID]
}

// InUse reports whether id belongs to a live session.
func (r *Registry) InUse(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// Sessions returns the live sessions ordered by id.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	slices.SortFunc(sessions, func(a, b *Session) int { return cmp.Compare(a.id, b.id) })
	return sessions
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
