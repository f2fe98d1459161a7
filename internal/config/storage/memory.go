package storage

import (
	"context"
	"sync"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Memory is an in-process Backend. Values are deep-copied on the way in
// and out, so callers never share trees with the backend.
type Memory struct {
	mu        sync.Mutex
	areas     map[Area]map[string]layer.Tree
	failWrite error
	failRead  error
	subs      subscribers
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		areas: map[Area]map[string]layer.Tree{
			AreaLocal: {},
			AreaSync:  {},
		},
	}
}

// FailWrites makes every following Set and Clear return err.
// Passing nil restores normal operation.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = err
}

// FailReads makes every following Get return err.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = err
}

// Get implements Backend.
func (m *Memory) Get(ctx context.Context, area Area, key string) (layer.Tree, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRead != nil {
		return nil, false, m.failRead
	}
	data, ok := m.areas[area]
	if !ok {
		return nil, false, ErrUnknownArea
	}
	tree, ok := data[key]
	if !ok {
		return nil, false, nil
	}
	return layer.Clone(tree), true, nil
}

// Set implements Backend.
func (m *Memory) Set(ctx context.Context, area Area, key string, tree layer.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.failWrite != nil {
		err := m.failWrite
		m.mu.Unlock()
		return err
	}
	data, ok := m.areas[area]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownArea
	}
	old := data[key]
	stored := layer.Clone(tree)
	data[key] = stored
	m.mu.Unlock()

	m.subs.publish(Event{
		Area:    area,
		Changes: map[string]Change{key: {OldValue: old, NewValue: layer.Clone(stored)}},
		Origin:  OriginFrom(ctx),
	})
	return nil
}

// Clear implements Backend.
func (m *Memory) Clear(ctx context.Context, area Area) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.failWrite != nil {
		err := m.failWrite
		m.mu.Unlock()
		return err
	}
	data, ok := m.areas[area]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownArea
	}
	changes := make(map[string]Change, len(data))
	for key, old := range data {
		changes[key] = Change{OldValue: old}
	}
	m.areas[area] = map[string]layer.Tree{}
	m.mu.Unlock()

	m.subs.publish(Event{Area: area, Changes: changes, Origin: OriginFrom(ctx)})
	return nil
}

// Subscribe implements Backend.
func (m *Memory) Subscribe(fn func(Event)) func() {
	return m.subs.add(fn)
}
