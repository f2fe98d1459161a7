// Package config is a site-aware layered settings store.
//
// Every setting is resolved from three layers:
//
//	┌─────────────────────────────┐
//	│  3. Site overrides          │  ← user subconfigs matching the URL
//	├─────────────────────────────┤
//	│  2. User settings           │  ← persisted under "userconfig"
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │  ← Defaults()
//	└─────────────────────────────┘
//
// When the default of a setting is a tree, the layers are deep-merged so a
// user can change one binding without restating the rest. Otherwise the
// most specific layer that defines the setting wins.
//
// # Sub-packages
//
//   - layer: tree paths, deep merge and cloning
//   - site: matching subconfig patterns against a URL
//   - storage: persistence backends (in-memory and JSON files)
//   - migrate: the versioned upgrade engine
//   - notify: change listeners and tree diffs
//   - watcher: debounced file watching for the file backend
//   - loader: JSON, TOML and YAML codecs and environment options
//   - export: rendering a user tree as a script of commands
//
// # Basic Usage
//
//	backend, err := storage.OpenFile(dir)
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	cfg := config.New(backend, config.WithLocation(currentURL))
//	if err := cfg.Init(ctx); err != nil {
//	    return err
//	}
//
//	// Resolved value for the current URL
//	cmd := cfg.Get(config.KeyNmaps, "j")
//
//	// Write-through mutation
//	err = cfg.Set(ctx, config.KeyNmaps, "j", "scrollline 5")
//
//	// Site override
//	err = cfg.SetURL(ctx, `^https://mail\.example\.com`, "smoothscroll", "true")
//
// # Change Notification
//
// Listeners observe changes made by other writers of the same storage:
//
//	sub := cfg.AddChangeListener(config.KeyNmaps, func(old, new any) {
//	    rebind(new)
//	})
//	defer sub.Unsubscribe()
//
// # Migrations
//
// Init upgrades the stored tree from its recorded configversion to
// LatestVersion, one step at a time. A failing step is logged and skipped.
//
// # Thread Safety
//
// Store is safe for concurrent use. Its lock is never held while calling
// the storage backend or a listener, so listeners may call back into the
// store.
package config
