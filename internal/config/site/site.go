// Package site resolves site-specific settings.
//
// Site overrides live under the "subconfigs" key of a configuration tree,
// keyed by a URL pattern. Every subconfig is itself a configuration tree
// with an optional "priority" (default 10). For a given URL and key path
// the matching subconfigs that define the key are folded together in
// ascending priority: trees merge, anything else replaces.
package site

import (
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/dshills/sitecfg/internal/config/layer"
)

const (
	// SubconfigsKey is the tree key holding site overrides.
	SubconfigsKey = "subconfigs"

	// PriorityKey is the subconfig key holding its priority.
	PriorityKey = "priority"

	// DefaultPriority applies to subconfigs without a usable priority.
	DefaultPriority = 10
)

// Resolver matches URLs against subconfig patterns.
// Compiled patterns are cached; the zero value is not usable, use New.
type Resolver struct {
	mu       sync.Mutex
	patterns map[string]*regexp2.Regexp
	invalid  map[string]bool
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report unusable patterns.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMatchTimeout bounds how long a single pattern may run against a URL.
func WithMatchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		patterns: make(map[string]*regexp2.Regexp),
		invalid:  make(map[string]bool),
		timeout:  100 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Match reports whether url matches pattern anywhere.
// Malformed patterns never match.
func (r *Resolver) Match(pattern, url string) bool {
	re := r.compile(pattern)
	if re == nil {
		return false
	}
	ok, err := re.MatchString(url)
	if err != nil {
		r.logger.Debug("site pattern match failed", "pattern", pattern, "error", err)
		return false
	}
	return ok
}

// Matches returns the subconfig patterns of t matching url, sorted by
// ascending priority.
func (r *Resolver) Matches(t layer.Tree, url string) []string {
	subconfigs := Subconfigs(t)
	var matched []string
	for _, pattern := range layer.Keys(subconfigs) {
		if r.Match(pattern, url) {
			matched = append(matched, pattern)
		}
	}
	sortByPriority(matched, subconfigs)
	return matched
}

// Resolve returns the folded site value for path in t.
func (r *Resolver) Resolve(t layer.Tree, url string, path []string) (any, bool) {
	subconfigs := Subconfigs(t)
	if len(subconfigs) == 0 {
		return nil, false
	}

	var matched []string
	for _, pattern := range layer.Keys(subconfigs) {
		if !r.Match(pattern, url) {
			continue
		}
		if _, ok := layer.GetDeep(subconfigs[pattern], path); ok {
			matched = append(matched, pattern)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}

	sortByPriority(matched, subconfigs)

	var acc any
	for _, pattern := range matched {
		val, _ := layer.GetDeep(subconfigs[pattern], path)
		if layer.IsTree(acc) && layer.IsTree(val) {
			acc = layer.MergeValue(acc, val)
		} else {
			acc = layer.CloneValue(val)
		}
	}
	return acc, true
}

// Combine resolves path against both the default and the user tree and
// layers the user result over the default result.
func (r *Resolver) Combine(defaults, user layer.Tree, url string, path []string) (any, bool) {
	deflt, deflOK := r.Resolve(defaults, url, path)
	usr, userOK := r.Resolve(user, url, path)
	switch {
	case !userOK:
		return deflt, deflOK
	case !deflOK || !layer.IsTree(usr) || !layer.IsTree(deflt):
		return usr, true
	default:
		return layer.MergeValue(deflt, usr), true
	}
}

// Subconfigs returns the subconfig trees of t keyed by pattern.
// Entries that are not trees are skipped.
func Subconfigs(t layer.Tree) map[string]layer.Tree {
	raw, ok := t[SubconfigsKey].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]layer.Tree, len(raw))
	for pattern, v := range raw {
		if sub, ok := v.(map[string]any); ok {
			out[pattern] = sub
		}
	}
	return out
}

// Priority returns the priority of a subconfig.
// Numbers and numeric strings are accepted; anything else yields
// DefaultPriority.
func Priority(sub layer.Tree) float64 {
	switch v := sub[PriorityKey].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return DefaultPriority
}

// sortByPriority orders patterns by ascending priority, keeping the input
// order for ties.
func sortByPriority(patterns []string, subconfigs map[string]layer.Tree) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return Priority(subconfigs[patterns[i]]) < Priority(subconfigs[patterns[j]])
	})
}

// compile returns the cached regexp for pattern, or nil if it is malformed.
func (r *Resolver) compile(pattern string) *regexp2.Regexp {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.patterns[pattern]; ok {
		return re
	}
	if r.invalid[pattern] {
		return nil
	}

	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		r.invalid[pattern] = true
		r.logger.Debug("ignoring malformed site pattern", "pattern", pattern, "error", err)
		return nil
	}
	re.MatchTimeout = r.timeout
	r.patterns[pattern] = re
	return re
}
