// Package notify provides change notification for configuration updates.
//
// Listeners are registered per top-level setting name and are fired in
// registration order with the setting's previous and new effective value.
// Diff computes which settings changed between two user trees.
package notify

import (
	"log/slog"
	"sync"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was removed from the user tree.
	ChangeDelete

	// ChangeClear indicates the whole user tree was cleared.
	ChangeClear
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes one top-level setting whose effective value changed.
type Change struct {
	// Key is the top-level setting name.
	Key string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous effective value.
	OldValue any

	// NewValue is the new effective value.
	NewValue any
}

// Listener is called with the previous and new value of a setting.
type Listener func(oldValue, newValue any)

// Subscription represents a registered listener.
type Subscription struct {
	id       uint64
	key      string
	registry *Registry
}

// Key returns the setting name the subscription listens to.
func (s *Subscription) Key() string {
	return s.key
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.registry != nil {
		s.registry.Remove(s)
	}
}

type entry struct {
	id       uint64
	listener Listener
}

// Registry maps top-level setting names to ordered listener lists.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    uint64
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report panicking listeners.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a new Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		listeners: make(map[string][]entry),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a listener for key. Listeners for the same key run in the
// order they were added.
func (r *Registry) Add(key string, listener Listener) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[key] = append(r.listeners[key], entry{id: id, listener: listener})

	return &Subscription{id: id, key: key, registry: r}
}

// Remove unregisters a subscription. Returns false if it was not registered.
func (r *Registry) Remove(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.listeners[sub.key]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.listeners, sub.key)
		} else {
			r.listeners[sub.key] = list
		}
		return true
	}
	return false
}

// Count returns the number of listeners registered for key.
func (r *Registry) Count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[key])
}

// Fire calls every listener registered for key.
// Listeners run outside the registry lock, so they may add or remove
// subscriptions; such changes apply from the next Fire.
func (r *Registry) Fire(key string, oldValue, newValue any) {
	r.mu.RLock()
	list := make([]entry, len(r.listeners[key]))
	copy(list, r.listeners[key])
	r.mu.RUnlock()

	for _, e := range list {
		r.safeCall(key, e.listener, oldValue, newValue)
	}
}

// FireAll delivers every change in order.
func (r *Registry) FireAll(changes []Change) {
	for _, c := range changes {
		r.Fire(c.Key, c.OldValue, c.NewValue)
	}
}

// safeCall calls a listener with panic recovery so one bad listener does
// not stop its siblings.
func (r *Registry) safeCall(key string, l Listener, oldValue, newValue any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("change listener panicked", "key", key, "panic", rec)
		}
	}()
	l(layer.CloneValue(oldValue), layer.CloneValue(newValue))
}
