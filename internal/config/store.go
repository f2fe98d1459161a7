package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/sitecfg/internal/config/layer"
	"github.com/dshills/sitecfg/internal/config/migrate"
	"github.com/dshills/sitecfg/internal/config/notify"
	"github.com/dshills/sitecfg/internal/config/site"
	"github.com/dshills/sitecfg/internal/config/storage"
)

// Store owns the default and user trees and serves every read and write of
// the settings they hold.
//
// A Store is safe for concurrent use. The lock guarding the trees is never
// held while calling the storage backend or a change listener.
type Store struct {
	mu sync.Mutex

	// saveMu orders writes to the backend so an older snapshot never
	// lands after a newer one. It is never taken while holding mu.
	saveMu sync.Mutex

	defaults layer.Tree
	user     layer.Tree

	initStarted bool
	initialised bool
	waiters     []*waiter

	backend   storage.Backend
	cancelSub func()
	origin    string

	sites     *site.Resolver
	listeners *notify.Registry
	chain     *migrate.Chain
	location  func() string
	logger    *slog.Logger
}

// waiter is a GetAsync call parked until Init completes.
type waiter struct {
	path []string
	ch   chan any
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store and the components it creates.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the function that reports the current URL used for
// site matching. Without it, only patterns matching "" apply.
func WithLocation(fn func() string) Option {
	return func(s *Store) {
		s.location = fn
	}
}

// WithDefaults replaces the built-in default tree.
func WithDefaults(t layer.Tree) Option {
	return func(s *Store) {
		s.defaults = layer.Clone(t)
	}
}

// WithMigrations replaces the built-in migration chain.
func WithMigrations(c *migrate.Chain) Option {
	return func(s *Store) {
		s.chain = c
	}
}

// WithSiteResolver replaces the site pattern resolver.
func WithSiteResolver(r *site.Resolver) Option {
	return func(s *Store) {
		s.sites = r
	}
}

// New creates a store backed by backend. Call Init before relying on
// user values.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		user:    layer.Tree{},
		backend: backend,
		origin:  uuid.NewString(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.defaults == nil {
		s.defaults = Defaults()
	}
	if s.sites == nil {
		s.sites = site.New(site.WithLogger(s.logger))
	}
	if s.chain == nil {
		s.chain = Migrations(migrate.WithLogger(s.logger))
	}
	s.listeners = notify.New(notify.WithLogger(s.logger))

	return s
}

// Init loads the user tree from storage, upgrades it to the current schema
// and starts following storage changes. The sync area is read first and
// the local area second, so local keys override sync keys. Pending
// GetAsync calls are answered in the order they were made.
//
// Init may only succeed once; later calls return ErrAlreadyInitialized.
// If loading or migrating fails, the user tree is discarded and Init may
// be retried.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initStarted {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initStarted = true
	s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		s.abortInit()
		return err
	}
	if err := s.Migrate(ctx); err != nil {
		s.abortInit()
		return err
	}

	cancel := s.backend.Subscribe(s.HandleStorageEvent)

	s.mu.Lock()
	s.cancelSub = cancel
	s.initialised = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		w.ch <- s.GetDynamic(w.path...)
	}

	s.logger.Info("config initialised", "version", s.version(), "waiters", len(waiters))
	return nil
}

// abortInit undoes a failed Init so it can be retried.
func (s *Store) abortInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = layer.Tree{}
	s.initStarted = false
}

// Migrate upgrades the user tree to the latest version the migration
// chain knows, persisting each step. Init calls it once; it runs again
// whenever another writer stores a tree at an older version.
func (s *Store) Migrate(ctx context.Context) error {
	results, err := s.chain.Run(ctx, migrationTarget{s})
	for _, r := range results {
		s.logger.Debug("config migration", "from", r.From, "to", r.To, "ok", r.Err == nil)
	}
	if err != nil {
		return fmt.Errorf("migrate config: %w", err)
	}
	return nil
}

// load shallow-assigns each area's snapshot into the user tree.
func (s *Store) load(ctx context.Context) error {
	for _, area := range storage.Areas {
		tree, ok, err := s.backend.Get(ctx, area, StorageKey)
		if err != nil {
			return fmt.Errorf("load %s config: %w", area, err)
		}
		if !ok {
			continue
		}

		s.mu.Lock()
		for k, v := range tree {
			s.user[k] = layer.CloneValue(v)
		}
		s.mu.Unlock()
	}
	return nil
}

// Initialised reports whether Init has completed.
func (s *Store) Initialised() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialised
}

// Close stops following storage changes.
func (s *Store) Close() {
	s.mu.Lock()
	cancel := s.cancelSub
	s.cancelSub = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Reset returns the store to its empty, uninitialised state. Pending
// GetAsync calls stay parked until the next successful Init.
func (s *Store) Reset() {
	s.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = layer.Tree{}
	s.initStarted = false
	s.initialised = false
}

// UserTree returns a copy of the user tree.
func (s *Store) UserTree() layer.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layer.Clone(s.user)
}

// DefaultTree returns a copy of the default tree.
func (s *Store) DefaultTree() layer.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layer.Clone(s.defaults)
}

// Origin returns the id stamped on this store's storage writes.
func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.user[string(KeyConfigVersion)].(string)
	return v
}

func (s *Store) currentURL() string {
	if s.location == nil {
		return ""
	}
	return s.location()
}
