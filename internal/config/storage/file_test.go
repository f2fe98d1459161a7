package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/sitecfg/internal/config/layer"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) get() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func TestFile_SetGetPersist(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := OpenFile(dir, WithoutWatch())
	require.NoError(t, err)

	_, ok, err := f.Get(ctx, AreaSync, "userconfig")
	require.NoError(t, err)
	assert.False(t, ok)

	tree := layer.Tree{
		"configversion": "1.7",
		"nmaps":         layer.Tree{"j": "scrollline 5"},
		"n":             3,
	}
	require.NoError(t, f.Set(ctx, AreaSync, "userconfig", tree))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "sync.json"))
	require.NoError(t, err)
	assert.Equal(t, "scrollline 5", gjson.GetBytes(raw, "userconfig.nmaps.j").String())

	g, err := OpenFile(dir, WithoutWatch())
	require.NoError(t, err)
	defer g.Close()

	got, ok, err := g.Get(ctx, AreaSync, "userconfig")
	require.NoError(t, err)
	require.True(t, ok)
	// Numbers come back as float64 after the JSON round trip.
	assert.Equal(t, layer.Tree{
		"configversion": "1.7",
		"nmaps":         map[string]any{"j": "scrollline 5"},
		"n":             3.0,
	}, got)

	_, ok, err = g.Get(ctx, AreaLocal, "userconfig")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := OpenFile(dir, WithoutWatch())
	require.NoError(t, err)
	defer f.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Set(ctx, AreaLocal, "userconfig", layer.Tree{"i": i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "local.json", entries[0].Name())
}

func TestFile_EventsAndClear(t *testing.T) {
	ctx := WithOrigin(context.Background(), "store-1")
	f, err := OpenFile(t.TempDir(), WithoutWatch())
	require.NoError(t, err)
	defer f.Close()

	var log eventLog
	f.Subscribe(log.add)

	require.NoError(t, f.Set(ctx, AreaLocal, "userconfig", layer.Tree{"a": "1"}))
	require.NoError(t, f.Set(ctx, AreaLocal, "other", layer.Tree{"b": "2"}))
	require.NoError(t, f.Clear(ctx, AreaLocal))

	events := log.get()
	require.Len(t, events, 3)
	assert.Equal(t, "store-1", events[0].Origin)
	assert.Equal(t, layer.Tree{"a": "1"}, events[0].Changes["userconfig"].NewValue)

	cleared := events[2].Changes
	require.Len(t, cleared, 2)
	assert.Nil(t, cleared["userconfig"].NewValue)
	assert.Equal(t, layer.Tree{"a": "1"}, cleared["userconfig"].OldValue)

	_, ok, err := f.Get(ctx, AreaLocal, "userconfig")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_ExternalEdit(t *testing.T) {
	ctx := WithOrigin(context.Background(), "store-1")
	dir := t.TempDir()

	f, err := OpenFile(dir, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer f.Close()

	var log eventLog
	f.Subscribe(log.add)

	require.NoError(t, f.Set(ctx, AreaSync, "userconfig", layer.Tree{"a": "1"}))

	// Give the watcher time to see our own write; it must stay silent.
	time.Sleep(100 * time.Millisecond)
	require.Len(t, log.get(), 1)

	doc := []byte(`{"userconfig": {"a": "2"}}`)
	tmp := filepath.Join(t.TempDir(), "sync.json")
	require.NoError(t, os.WriteFile(tmp, doc, 0o600))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "sync.json")))

	require.Eventually(t, func() bool { return len(log.get()) == 2 }, 2*time.Second, 10*time.Millisecond)

	ev := log.get()[1]
	assert.Empty(t, ev.Origin)
	assert.Equal(t, AreaSync, ev.Area)
	assert.Equal(t, Change{
		OldValue: layer.Tree{"a": "1"},
		NewValue: layer.Tree{"a": "2"},
	}, ev.Changes["userconfig"])
}

func TestFile_RejectsNonObjectDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.json"), []byte(`[1,2]`), 0o600))

	_, err := OpenFile(dir, WithoutWatch())
	assert.Error(t, err)
}

func TestFile_NonTreeValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.json"), []byte(`{"k": 5}`), 0o600))

	f, err := OpenFile(dir, WithoutWatch())
	require.NoError(t, err)
	defer f.Close()

	_, _, err = f.Get(context.Background(), AreaLocal, "k")
	assert.ErrorIs(t, err, ErrNotTree)
}

func TestFile_Closed(t *testing.T) {
	f, err := OpenFile(t.TempDir(), WithoutWatch())
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	assert.ErrorIs(t, f.Set(context.Background(), AreaLocal, "k", layer.Tree{}), ErrClosed)
}

func TestEscapeKey(t *testing.T) {
	tests := map[string]string{
		"userconfig":  "userconfig",
		"a.b":         `a\.b`,
		"what?*":      `what\?\*`,
		"site-config": "site-config",
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeKey(in), in)
	}

	got, ok, err := lookup([]byte(`{"a": {"b": {}}}`), "a.b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
