package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sitecfg/internal/config/layer"
)

func TestParseArea(t *testing.T) {
	a, err := ParseArea("local")
	require.NoError(t, err)
	assert.Equal(t, AreaLocal, a)

	a, err = ParseArea("sync")
	require.NoError(t, err)
	assert.Equal(t, AreaSync, a)

	_, err = ParseArea("session")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestOrigin(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, OriginFrom(ctx))
	assert.Equal(t, "abc", OriginFrom(WithOrigin(ctx, "abc")))
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, AreaSync, "userconfig")
	require.NoError(t, err)
	assert.False(t, ok)

	in := layer.Tree{"a": layer.Tree{"b": 1.0}}
	require.NoError(t, m.Set(ctx, AreaSync, "userconfig", in))

	// Mutating the input after Set must not reach the backend.
	in["a"].(layer.Tree)["b"] = 2.0

	got, ok, err := m.Get(ctx, AreaSync, "userconfig")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, layer.Tree{"a": layer.Tree{"b": 1.0}}, got)

	_, ok, err = m.Get(ctx, AreaLocal, "userconfig")
	require.NoError(t, err)
	assert.False(t, ok, "areas are independent")

	_, _, err = m.Get(ctx, Area("nope"), "userconfig")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestMemory_Events(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var events []Event
	cancel := m.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, m.Set(WithOrigin(ctx, "me"), AreaLocal, "k", layer.Tree{"x": 1.0}))
	require.NoError(t, m.Set(ctx, AreaLocal, "k", layer.Tree{"x": 2.0}))

	require.Len(t, events, 2)
	assert.Equal(t, "me", events[0].Origin)
	assert.Equal(t, AreaLocal, events[0].Area)
	assert.Nil(t, events[0].Changes["k"].OldValue)
	assert.Equal(t, layer.Tree{"x": 1.0}, events[0].Changes["k"].NewValue)
	assert.Empty(t, events[1].Origin)
	assert.Equal(t, layer.Tree{"x": 1.0}, events[1].Changes["k"].OldValue)

	require.NoError(t, m.Clear(ctx, AreaLocal))
	require.Len(t, events, 3)
	assert.Equal(t, Change{OldValue: layer.Tree{"x": 2.0}}, events[2].Changes["k"])

	cancel()
	cancel()
	require.NoError(t, m.Set(ctx, AreaLocal, "k", layer.Tree{}))
	assert.Len(t, events, 3, "no events after cancel")
}

func TestMemory_FailWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("quota exceeded")

	m.FailWrites(boom)
	assert.ErrorIs(t, m.Set(ctx, AreaSync, "k", layer.Tree{}), boom)
	assert.ErrorIs(t, m.Clear(ctx, AreaSync), boom)

	m.FailWrites(nil)
	assert.NoError(t, m.Set(ctx, AreaSync, "k", layer.Tree{}))

	m.FailReads(boom)
	_, _, err := m.Get(ctx, AreaSync, "k")
	assert.ErrorIs(t, err, boom)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, AreaSync, "k", layer.Tree{}), context.Canceled)
	_, _, err := m.Get(ctx, AreaSync, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
