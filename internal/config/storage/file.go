package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/watcher"
)

const emptyDoc = "{}"

// File is a Backend that keeps each area in a JSON document named
// <area>.json inside a directory. Writes replace the document atomically.
// Edits made by other processes are picked up by a file watcher and
// published as events with an empty Origin.
type File struct {
	mu     sync.Mutex
	dir    string
	docs   map[Area][]byte
	closed bool

	logger   *slog.Logger
	watch    bool
	debounce time.Duration
	watcher  *watcher.Watcher

	subs subscribers
}

// FileOption configures a File backend.
type FileOption func(*File)

// WithLogger sets the logger for reload and watch diagnostics.
func WithLogger(l *slog.Logger) FileOption {
	return func(f *File) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithDebounce sets how long a document must be quiet before an
// external edit is reloaded.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) {
		f.debounce = d
	}
}

// WithoutWatch disables following external edits.
func WithoutWatch() FileOption {
	return func(f *File) {
		f.watch = false
	}
}

// OpenFile opens or creates a file backend rooted at dir.
func OpenFile(dir string, opts ...FileOption) (*File, error) {
	f := &File{
		dir:      dir,
		docs:     make(map[Area][]byte),
		logger:   slog.Default(),
		watch:    true,
		debounce: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	for _, area := range Areas {
		doc, err := f.readDoc(area)
		if err != nil {
			return nil, err
		}
		f.docs[area] = doc
	}

	if f.watch {
		w := watcher.New(watcher.WithDebounce(f.debounce), watcher.WithLogger(f.logger))
		for _, area := range Areas {
			if err := w.Watch(f.Path(area)); err != nil {
				return nil, err
			}
		}
		w.OnChange(f.onFileEvent)
		if err := w.Start(); err != nil {
			return nil, fmt.Errorf("start storage watcher: %w", err)
		}
		f.watcher = w
	}

	return f, nil
}

// Dir returns the backend's root directory.
func (f *File) Dir() string {
	return f.dir
}

// Path returns the document path for area.
func (f *File) Path(area Area) string {
	return filepath.Join(f.dir, string(area)+".json")
}

// Get implements Backend.
func (f *File) Get(ctx context.Context, area Area, key string) (layer.Tree, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := f.checkArea(area); err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, false, ErrClosed
	}
	doc, err := f.readDoc(area)
	if err != nil {
		return nil, false, err
	}
	return lookup(doc, key)
}

// Set implements Backend.
func (f *File) Set(ctx context.Context, area Area, key string, tree layer.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.checkArea(area); err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	doc, err := f.readDoc(area)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	old, _, _ := lookup(doc, key)

	value := tree
	if value == nil {
		value = layer.Tree{}
	}
	next, err := sjson.SetBytes(doc, escapeKey(key), value)
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("encode %s/%s: %w", area, key, err)
	}
	next = pretty.Pretty(next)
	if err := f.writeDoc(area, next); err != nil {
		f.mu.Unlock()
		return err
	}
	f.docs[area] = next
	f.mu.Unlock()

	f.subs.publish(Event{
		Area:    area,
		Changes: map[string]Change{key: {OldValue: old, NewValue: layer.Clone(value)}},
		Origin:  OriginFrom(ctx),
	})
	return nil
}

// Clear implements Backend.
func (f *File) Clear(ctx context.Context, area Area) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.checkArea(area); err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	doc, err := f.readDoc(area)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	next := []byte(emptyDoc)
	if err := f.writeDoc(area, next); err != nil {
		f.mu.Unlock()
		return err
	}
	f.docs[area] = next
	f.mu.Unlock()

	f.subs.publish(Event{Area: area, Changes: diffDocs(doc, next), Origin: OriginFrom(ctx)})
	return nil
}

// Subscribe implements Backend.
func (f *File) Subscribe(fn func(Event)) func() {
	return f.subs.add(fn)
}

// Close stops following external edits. Further calls fail with ErrClosed.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil && !errors.Is(err, watcher.ErrNotRunning) {
			return err
		}
	}
	return nil
}

func (f *File) checkArea(area Area) error {
	if _, err := ParseArea(string(area)); err != nil {
		return err
	}
	return nil
}

// onFileEvent reloads a document changed outside this backend. The read
// happens under the lock so it is ordered with our own writes, and a
// document identical to the last one we wrote is ignored.
func (f *File) onFileEvent(ev watcher.Event) {
	area := Area(strings.TrimSuffix(filepath.Base(ev.Path), ".json"))
	if f.checkArea(area) != nil {
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	doc, err := f.readDoc(area)
	if err != nil {
		f.mu.Unlock()
		f.logger.Warn("reload storage document", "area", string(area), "error", err)
		return
	}
	old := f.docs[area]
	if bytes.Equal(old, doc) {
		f.mu.Unlock()
		return
	}
	f.docs[area] = doc
	f.mu.Unlock()

	changes := diffDocs(old, doc)
	if len(changes) == 0 {
		return
	}
	f.logger.Debug("storage changed externally", "area", string(area), "keys", len(changes))
	f.subs.publish(Event{Area: area, Changes: changes})
}

// readDoc returns the area document, or an empty object if it does not
// exist. Callers hold f.mu except during OpenFile.
func (f *File) readDoc(area Area) ([]byte, error) {
	data, err := os.ReadFile(f.Path(area))
	if errors.Is(err, fs.ErrNotExist) {
		return []byte(emptyDoc), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s storage: %w", area, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte(emptyDoc), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("read %s storage: %s is not a JSON object", area, f.Path(area))
	}
	return data, nil
}

// writeDoc replaces the area document through a uniquely named temporary
// file in the same directory.
func (f *File) writeDoc(area Area, data []byte) error {
	target := f.Path(area)
	tmp := filepath.Join(f.dir, "."+string(area)+"-"+uuid.NewString()+".tmp")

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s storage: %w", area, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s storage: %w", area, err)
	}
	return nil
}

func lookup(doc []byte, key string) (layer.Tree, bool, error) {
	res := gjson.GetBytes(doc, escapeKey(key))
	if !res.Exists() || res.Type == gjson.Null {
		return nil, false, nil
	}
	tree, ok := res.Value().(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrNotTree, key)
	}
	return tree, true, nil
}

// diffDocs returns a Change for every top-level key whose value differs.
func diffDocs(old, next []byte) map[string]Change {
	keys := map[string]struct{}{}
	for _, doc := range [][]byte{old, next} {
		gjson.ParseBytes(doc).ForEach(func(k, _ gjson.Result) bool {
			keys[k.String()] = struct{}{}
			return true
		})
	}

	changes := make(map[string]Change)
	for k := range keys {
		o, _, _ := lookup(old, k)
		n, _, _ := lookup(next, k)
		if layer.Equal(o, n) {
			continue
		}
		changes[k] = Change{OldValue: o, NewValue: n}
	}
	return changes
}

// escapeKey makes a storage key safe to use as a single gjson/sjson path
// component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, c := range key {
		if !isSafeKeyChar(c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func isSafeKeyChar(c rune) bool {
	return c <= ' ' || c > '~' || c == '_' || c == '-' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
