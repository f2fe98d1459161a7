package config

import (
	"context"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/notify"
	"github.com/dshills/sitecfg/internal/config/storage"
)

// AddChangeListener registers l to be called with the old and new value
// of key whenever another writer changes it in storage.
func (s *Store) AddChangeListener(key Key, l notify.Listener) *notify.Subscription {
	return s.listeners.Add(string(key), l)
}

// RemoveChangeListener unregisters a listener.
func (s *Store) RemoveChangeListener(sub *notify.Subscription) bool {
	return s.listeners.Remove(sub)
}

// HandleStorageEvent applies a storage change made by another writer.
//
// A new snapshot replaces the user tree and fires listeners for every
// top-level key whose effective value changed. A snapshot stored at an older
// config version is migrated before listeners see it. A cleared snapshot in the
// area this store saves to empties the user tree and fires listeners for
// every key that differed from its default. Events this store caused and
// events for other storage keys are ignored.
func (s *Store) HandleStorageEvent(ev storage.Event) {
	if ev.Origin != "" && ev.Origin == s.origin {
		return
	}
	change, ok := ev.Changes[StorageKey]
	if !ok {
		return
	}

	var changes []notify.Change
	if change.NewValue != nil {
		s.mu.Lock()
		old := s.user
		s.user = layer.Clone(change.NewValue)
		version, _ := s.user[string(KeyConfigVersion)].(string)
		s.mu.Unlock()

		if s.chain.Pending(version) {
			if err := s.Migrate(context.Background()); err != nil {
				s.logger.Warn("migrate stored config", "version", version, "error", err)
			}
		}

		s.mu.Lock()
		changes = notify.Diff(old, s.user, s.defaults)
		s.mu.Unlock()
	} else {
		if ev.Area != s.storageArea() {
			return
		}
		s.mu.Lock()
		old := s.user
		s.user = layer.Tree{}
		changes = notify.Cleared(old, s.defaults)
		s.mu.Unlock()
	}

	s.logger.Debug("config changed in storage",
		"area", string(ev.Area), "origin", ev.Origin, "keys", len(changes))
	s.listeners.FireAll(changes)
}
