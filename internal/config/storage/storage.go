// Package storage defines the persistent key-value backend the settings
// store reads from and writes through to.
//
// A backend exposes two named areas, "local" and "sync". Each area maps a
// storage key to a configuration tree. Backends publish change events for
// every write so that other processes sharing the backend can follow along.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Area names a storage area.
type Area string

const (
	// AreaLocal is storage private to this machine.
	AreaLocal Area = "local"
	// AreaSync is storage synchronised between machines.
	AreaSync Area = "sync"
)

// Areas lists the supported areas in load order.
var Areas = []Area{AreaSync, AreaLocal}

// Errors returned by storage backends.
var (
	// ErrUnknownArea indicates an area name other than local or sync.
	ErrUnknownArea = errors.New("unknown storage area")

	// ErrNotTree indicates a stored value is not a configuration tree.
	ErrNotTree = errors.New("stored value is not a tree")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("storage backend closed")
)

// ParseArea validates an area name.
func ParseArea(s string) (Area, error) {
	switch Area(s) {
	case AreaLocal, AreaSync:
		return Area(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArea, s)
	}
}

// Change is the old and new value of one storage key.
// NewValue is nil when the key was removed or its area cleared.
type Change struct {
	OldValue layer.Tree
	NewValue layer.Tree
}

// Event reports changes to one area.
type Event struct {
	// Area is the area that changed.
	Area Area

	// Changes maps storage keys to their old and new values.
	Changes map[string]Change

	// Origin identifies the writer, empty when unknown or external.
	Origin string
}

// Backend is a persistent key-value store of configuration trees.
type Backend interface {
	// Get returns the tree stored at key, or false if there is none.
	Get(ctx context.Context, area Area, key string) (layer.Tree, bool, error)

	// Set stores tree at key and publishes a change event.
	Set(ctx context.Context, area Area, key string, tree layer.Tree) error

	// Clear removes every key from area and publishes a change event.
	Clear(ctx context.Context, area Area) error

	// Subscribe registers fn for change events and returns a function that
	// cancels the registration.
	Subscribe(fn func(Event)) (cancel func())
}

type originKey struct{}

// WithOrigin returns a context that marks writes as coming from id.
func WithOrigin(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, originKey{}, id)
}

// OriginFrom returns the writer id carried by ctx.
func OriginFrom(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}
