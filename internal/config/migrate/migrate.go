// Package migrate upgrades a persisted user tree from any historical schema
// version to the current one.
//
// A Chain maps each version tag to a Step that transforms the tree and names
// the next version. Running a chain repeatedly applies the step registered
// for the tree's current version until none is left. A version with no step
// is terminal, whether it is the latest version or one this build does not
// know about.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Target is the tree a chain migrates. Writes go through the target so they
// are persisted and observed like any other change.
type Target interface {
	// Version returns the current version tag, or "" if none is recorded.
	Version() string

	// SetVersion records a new version tag.
	SetVersion(ctx context.Context, v string) error

	// User returns the user value at path, ignoring defaults and sites.
	User(path ...string) (any, bool)

	// SetPath sets a user value.
	SetPath(ctx context.Context, path []string, value any) error

	// Unset removes a user value.
	Unset(ctx context.Context, path ...string) error

	// SetURL sets a value in the override for pattern.
	SetURL(ctx context.Context, pattern string, path []string, value any) error

	// Patterns returns the site patterns that have overrides.
	Patterns() []string

	// Legacy reads a pre-versioning top-level key from storage.
	Legacy(ctx context.Context, key string) (layer.Tree, bool, error)
}

// Step transforms a tree from one version to the next.
type Step struct {
	// From is the version this step applies to.
	From string

	// To is the version recorded once the step has run.
	To string

	// Description describes what the step does.
	Description string

	// Apply performs the migration.
	Apply func(ctx context.Context, t Target) error
}

// Result records one step of a run.
type Result struct {
	From        string
	To          string
	Description string
	Err         error
}

// Chain is an ordered set of migration steps.
type Chain struct {
	steps  map[string]Step
	logger *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger used to report step failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an empty chain.
func New(opts ...Option) *Chain {
	c := &Chain{
		steps:  make(map[string]Step),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a step. Steps must move the version strictly forward and
// each version may have only one step.
func (c *Chain) Register(s Step) error {
	from, err := ParseVersion(s.From)
	if err != nil {
		return err
	}
	to, err := ParseVersion(s.To)
	if err != nil {
		return err
	}
	if to.Compare(from) <= 0 {
		return fmt.Errorf("%w: %s -> %s", ErrStepLoop, s.From, s.To)
	}
	if _, ok := c.steps[s.From]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, s.From)
	}
	if s.Apply == nil {
		return fmt.Errorf("migration step %s has no Apply func", s.From)
	}
	c.steps[s.From] = s
	return nil
}

// MustRegister is Register for statically known steps. It panics on error.
func (c *Chain) MustRegister(steps ...Step) *Chain {
	for _, s := range steps {
		if err := c.Register(s); err != nil {
			panic(err)
		}
	}
	return c
}

// Steps returns the registered steps ordered by source version.
func (c *Chain) Steps() []Step {
	steps := make([]Step, 0, len(c.steps))
	for _, s := range c.steps {
		steps = append(steps, s)
	}
	sort.Slice(steps, func(i, j int) bool {
		a, _ := ParseVersion(steps[i].From)
		b, _ := ParseVersion(steps[j].From)
		return a.Compare(b) < 0
	})
	return steps
}

// Oldest returns the lowest source version, or "" for an empty chain.
func (c *Chain) Oldest() string {
	steps := c.Steps()
	if len(steps) == 0 {
		return ""
	}
	return steps[0].From
}

// Latest returns the highest target version, or "" for an empty chain.
func (c *Chain) Latest() string {
	var latest Version
	var tag string
	for _, s := range c.steps {
		v, _ := ParseVersion(s.To)
		if tag == "" || v.Compare(latest) > 0 {
			latest, tag = v, s.To
		}
	}
	return tag
}

// Pending reports whether a tree at version would be changed by Run.
func (c *Chain) Pending(version string) bool {
	if version == "" {
		return len(c.steps) > 0
	}
	_, ok := c.steps[version]
	return ok
}

// Run migrates t to the latest version it can reach.
//
// A target with no version starts at Oldest. A failing step is logged and
// recorded in the results but does not stop the run: its To version is
// still recorded so the chain cannot get stuck on bad data. Run returns an
// error only when ctx is done or the target will not record a version.
func (c *Chain) Run(ctx context.Context, t Target) ([]Result, error) {
	var results []Result

	if t.Version() == "" && len(c.steps) > 0 {
		if err := c.record(ctx, t, c.Oldest()); err != nil {
			return results, err
		}
	}

	for {
		current := t.Version()
		step, ok := c.steps[current]
		if !ok {
			return results, nil
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := Result{From: step.From, To: step.To, Description: step.Description}
		if err := c.apply(ctx, t, step); err != nil {
			res.Err = err
			c.logger.Warn("migration step failed", "from", step.From, "to", step.To, "error", err)
		}
		results = append(results, res)

		if err := c.record(ctx, t, step.To); err != nil {
			return results, err
		}
		c.logger.Debug("migrated config", "from", step.From, "to", step.To)
	}
}

// apply runs a step, turning a panic into an error.
func (c *Chain) apply(ctx context.Context, t Target, s Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("migration %s -> %s panicked: %v", s.From, s.To, r)
		}
	}()
	return s.Apply(ctx, t)
}

// record sets the version. A persist failure is logged; only a version that
// did not change in memory is fatal.
func (c *Chain) record(ctx context.Context, t Target, v string) error {
	if err := t.SetVersion(ctx, v); err != nil {
		c.logger.Warn("record config version", "version", v, "error", err)
	}
	if t.Version() != v {
		return fmt.Errorf("%w: want %s, have %q", ErrStuck, v, t.Version())
	}
	return nil
}
