package config

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/storage"
)

type call struct {
	old, new any
}

func record(calls *[]call) func(old, new any) {
	return func(old, new any) {
		*calls = append(*calls, call{old, new})
	}
}

func TestStore_ExternalChangeFiresListener(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := initStore(t, mem)

	var nmaps, themes []call
	s.AddChangeListener(KeyNmaps, record(&nmaps))
	s.AddChangeListener(KeyTheme, record(&themes))

	next := layer.Tree{"nmaps": layer.Tree{"j": "scrollline 1"}}
	if err := mem.Set(ctx, storage.AreaSync, StorageKey, next); err != nil {
		t.Fatal(err)
	}

	if len(nmaps) != 1 {
		t.Fatalf("nmaps listener called %d times, want 1", len(nmaps))
	}
	old := nmaps[0].old.(layer.Tree)
	if old["j"] != "scrollline 10" {
		t.Errorf("old nmaps.j = %v, want the default binding", old["j"])
	}
	if diff := cmp.Diff(layer.Tree{"j": "scrollline 1"}, nmaps[0].new); diff != "" {
		t.Errorf("new nmaps mismatch (-want +got):\n%s", diff)
	}
	if len(themes) != 0 {
		t.Errorf("theme listener called for an unchanged key")
	}

	if got := s.Get(KeyNmaps, "j"); got != "scrollline 1" {
		t.Errorf("nmaps.j = %v after external change", got)
	}
	if got := s.Get(KeyNmaps, "k"); got != "scrollline -10" {
		t.Errorf("nmaps.k = %v, want the default kept", got)
	}
}

func TestStore_OwnWritesDoNotFire(t *testing.T) {
	s := initStore(t, storage.NewMemory())

	var calls []call
	s.AddChangeListener(KeyTheme, record(&calls))

	if err := s.Set(context.Background(), KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 0 {
		t.Errorf("listener fired %d times for the store's own write", len(calls))
	}
}

func TestStore_IgnoresOtherStorageKeys(t *testing.T) {
	mem := storage.NewMemory()
	s := initStore(t, mem)

	var calls []call
	s.AddChangeListener(KeyTheme, record(&calls))

	if err := mem.Set(context.Background(), storage.AreaSync, "other", layer.Tree{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 0 || s.Get(KeyTheme) != "default" {
		t.Errorf("unrelated storage key changed the config")
	}
}

func TestStore_ClearedStorage(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := initStore(t, mem)

	if err := s.Set(ctx, KeyHintDelay, 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, KeyTheme, "default"); err != nil {
		t.Fatal(err)
	}

	var delays, themes []call
	s.AddChangeListener(KeyHintDelay, record(&delays))
	s.AddChangeListener(KeyTheme, record(&themes))

	// The other area clearing is ignored.
	s.HandleStorageEvent(storage.Event{
		Area:    storage.AreaLocal,
		Changes: map[string]storage.Change{StorageKey: {OldValue: layer.Tree{"hintdelay": 5}}},
	})
	if len(delays) != 0 || s.Get(KeyHintDelay) != 5 {
		t.Fatalf("clearing local storage affected a sync config")
	}

	if err := mem.Clear(ctx, storage.AreaSync); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]call{{5, 300}}, delays, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("hintdelay calls mismatch (-want +got):\n%s", diff)
	}
	if len(themes) != 0 {
		t.Errorf("theme listener fired although its value matched the default")
	}
	if len(s.UserTree()) != 0 {
		t.Errorf("user tree = %v after clear, want empty", s.UserTree())
	}
}

func TestStore_RemoveChangeListener(t *testing.T) {
	mem := storage.NewMemory()
	s := initStore(t, mem)

	var calls []call
	sub := s.AddChangeListener(KeyTheme, record(&calls))
	if !s.RemoveChangeListener(sub) {
		t.Fatal("RemoveChangeListener = false")
	}
	if s.RemoveChangeListener(sub) {
		t.Error("second RemoveChangeListener = true")
	}

	if err := mem.Set(context.Background(), storage.AreaSync, StorageKey, layer.Tree{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 0 {
		t.Errorf("removed listener fired")
	}
}

func TestStore_CloseStopsFollowing(t *testing.T) {
	mem := storage.NewMemory()
	s := initStore(t, mem)
	s.Close()

	if err := mem.Set(context.Background(), storage.AreaSync, StorageKey, layer.Tree{"theme": "dark"}); err != nil {
		t.Fatal(err)
	}
	if got := s.Get(KeyTheme); got != "default" {
		t.Errorf("theme = %v after Close, want default", got)
	}
}

func TestStore_ExternalOldVersionIsMigrated(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := initStore(t, mem, WithMigrations(Migrations()))

	var calls []call
	s.AddChangeListener(KeyGiMode, record(&calls))

	old := layer.Tree{"configversion": "1.0", "vimium-gi": false}
	if err := mem.Set(ctx, storage.AreaSync, StorageKey, old); err != nil {
		t.Fatal(err)
	}

	user := s.UserTree()
	if user["configversion"] != LatestVersion {
		t.Errorf("configversion = %v, want %s", user["configversion"], LatestVersion)
	}
	if user["gimode"] != "firefox" {
		t.Errorf("gimode = %v, want firefox", user["gimode"])
	}
	if _, ok := user["vimium-gi"]; ok {
		t.Error("vimium-gi kept after migration")
	}
	if diff := cmp.Diff([]call{{"nextinput", "firefox"}}, calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("gimode listener calls mismatch (-want +got):\n%s", diff)
	}

	stored, ok, err := mem.Get(ctx, storage.AreaSync, StorageKey)
	if err != nil || !ok {
		t.Fatalf("stored config missing: ok=%v err=%v", ok, err)
	}
	if stored["configversion"] != LatestVersion {
		t.Errorf("stored configversion = %v, want %s", stored["configversion"], LatestVersion)
	}
}
