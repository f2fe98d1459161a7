package config

import (
	"context"
	"fmt"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/site"
	"github.com/dshills/sitecfg/internal/config/storage"
)

// Set writes a user value and persists the user tree. The last argument is
// the value; the ones before it are the key path, given as strings or Keys:
//
//	s.Set(ctx, config.KeyNmaps, "j", "scrollline 5")
//
// At least one path element is required. A persist failure is returned as
// a *PersistError and the in-memory change is kept.
func (s *Store) Set(ctx context.Context, args ...any) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: set needs a key path and a value, got %d arguments", ErrInvalidArgument, len(args))
	}
	path, err := pathOf(args[:len(args)-1])
	if err != nil {
		return err
	}
	return s.SetPath(ctx, path, args[len(args)-1])
}

// SetPath is Set with an explicit path.
func (s *Store) SetPath(ctx context.Context, path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty key path", ErrInvalidArgument)
	}

	s.mu.Lock()
	err := layer.SetDeep(s.user, layer.CloneValue(value), path)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return s.Save(ctx)
}

// Unset removes a user value so the default applies again. A missing
// parent is not an error. The user tree is persisted either way.
func (s *Store) Unset(ctx context.Context, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty key path", ErrInvalidArgument)
	}

	s.mu.Lock()
	layer.DeleteDeep(s.user, path)
	s.mu.Unlock()

	return s.Save(ctx)
}

// SetURL is Set within the override for pattern.
func (s *Store) SetURL(ctx context.Context, pattern string, args ...any) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: seturl needs a value", ErrInvalidArgument)
	}
	return s.Set(ctx, append([]any{site.SubconfigsKey, pattern}, args...)...)
}

// UnsetURL is Unset within the override for pattern.
func (s *Store) UnsetURL(ctx context.Context, pattern string, path ...string) error {
	return s.Unset(ctx, append([]string{site.SubconfigsKey, pattern}, path...)...)
}

// Import shallow-assigns the top-level keys of t into the user tree and
// persists once.
func (s *Store) Import(ctx context.Context, t layer.Tree) error {
	s.mu.Lock()
	for k, v := range t {
		s.user[k] = layer.CloneValue(v)
	}
	s.mu.Unlock()

	return s.Save(ctx)
}

// Save persists the user tree to the area named by the storageloc
// setting, resolved like any other setting.
func (s *Store) Save(ctx context.Context) error {
	return s.SaveTo(ctx, s.storageArea())
}

// SaveTo persists the user tree to area. Concurrent saves reach the
// backend in the order their snapshots were taken.
func (s *Store) SaveTo(ctx context.Context, area storage.Area) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := layer.Clone(s.user)
	s.mu.Unlock()

	if err := s.backend.Set(storage.WithOrigin(ctx, s.origin), area, StorageKey, snapshot); err != nil {
		return &PersistError{Area: area, Err: err}
	}
	return nil
}

// storageArea resolves storageloc. Anything but "local" means sync.
func (s *Store) storageArea() storage.Area {
	if loc, _ := s.Get(KeyStorageLoc).(string); loc == string(storage.AreaLocal) {
		return storage.AreaLocal
	}
	return storage.AreaSync
}

func pathOf(elems []any) ([]string, error) {
	path := make([]string, len(elems))
	for i, e := range elems {
		switch v := e.(type) {
		case string:
			path[i] = v
		case Key:
			path[i] = string(v)
		default:
			return nil, fmt.Errorf("%w: path element %d is %T, not a string", ErrInvalidArgument, i, e)
		}
	}
	return path, nil
}
