package config

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Get returns the resolved value of key, optionally descending into rest.
// The result is a copy and is nil when no layer defines the setting.
func (s *Store) Get(key Key, rest ...string) any {
	return s.GetForURL(s.currentURL(), key.path(rest...)...)
}

// GetDynamic is Get for paths only known at run time. An empty path
// resolves the whole configuration.
func (s *Store) GetDynamic(path ...string) any {
	return s.GetForURL(s.currentURL(), path...)
}

// GetForURL resolves path as if the current location were url.
//
// When the default value is a tree, the result layers user over default
// and site over both. Otherwise the most specific defined value wins:
// site, then user, then default.
func (s *Store) GetForURL(url string, path ...string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolveLocked(url, path).Value
}

// GetAsync is Get, but before Init has completed it blocks until Init
// finishes or ctx is done. The value reflects the tree as loaded, not as
// it was when GetAsync was called.
func (s *Store) GetAsync(ctx context.Context, key Key, rest ...string) (any, error) {
	return s.GetAsyncDynamic(ctx, key.path(rest...)...)
}

// GetAsyncDynamic is GetAsync for paths only known at run time.
func (s *Store) GetAsyncDynamic(ctx context.Context, path ...string) (any, error) {
	s.mu.Lock()
	if s.initialised {
		s.mu.Unlock()
		return s.GetDynamic(path...), nil
	}
	w := &waiter{path: append([]string(nil), path...), ch: make(chan any, 1)}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case v := <-w.ch:
		return v, nil
	case <-ctx.Done():
		s.dropWaiter(w)
		return nil, ctx.Err()
	}
}

func (s *Store) dropWaiter(w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.waiters {
		if other == w {
			s.waiters = append(s.waiters[:i:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Explanation describes how a setting was resolved.
type Explanation struct {
	Path []string
	URL  string

	Default    any
	HasDefault bool
	User       any
	HasUser    bool
	Site       any
	HasSite    bool

	// Patterns lists the user subconfig patterns matching URL, lowest
	// priority first.
	Patterns []string

	Value  any
	Source layer.Source
}

// Explain resolves path at the current location and reports every layer
// that took part.
func (s *Store) Explain(path ...string) Explanation {
	return s.ExplainForURL(s.currentURL(), path...)
}

// ExplainForURL is Explain at an explicit location.
func (s *Store) ExplainForURL(url string, path ...string) Explanation {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.resolveLocked(url, path)
	e.Patterns = s.sites.Matches(s.user, url)
	return e
}

// resolveLocked computes the value at path. Callers hold s.mu.
func (s *Store) resolveLocked(url string, path []string) Explanation {
	e := Explanation{Path: append([]string(nil), path...), URL: url}

	e.Site, e.HasSite = s.sites.Combine(s.defaults, s.user, url, path)
	e.User, e.HasUser = layer.GetDeep(s.user, path)
	e.Default, e.HasDefault = layer.GetDeep(s.defaults, path)

	switch {
	case layer.IsTree(e.Default):
		e.Value = layer.MergeValue(layer.MergeValue(e.Default, e.User), e.Site)
		e.Source = layer.SourceDefault
		if e.HasUser || e.HasSite {
			e.Source = layer.SourceMerged
		}
	case e.HasSite:
		e.Value, e.Source = layer.CloneValue(e.Site), layer.SourceSite
	case e.HasUser:
		e.Value, e.Source = layer.CloneValue(e.User), layer.SourceUser
	case e.HasDefault:
		e.Value, e.Source = layer.CloneValue(e.Default), layer.SourceDefault
	}

	e.User = layer.CloneValue(e.User)
	e.Default = layer.CloneValue(e.Default)
	return e
}

// lookup resolves path and reports ErrSettingNotFound when nothing is set.
func (s *Store) lookup(path []string) (any, error) {
	v := s.GetDynamic(path...)
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, strings.Join(path, "."))
	}
	return v, nil
}

// GetString returns a string setting.
func (s *Store) GetString(path ...string) (string, error) {
	v, err := s.lookup(path)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: strings.Join(path, "."), Expected: "string", Actual: typeName(v)}
	}
	return str, nil
}

// GetInt returns an integer setting. Integral floats and numeric strings
// are accepted since settings round-trip through JSON and older versions
// stored numbers as strings.
func (s *Store) GetInt(path ...string) (int, error) {
	v, err := s.lookup(path)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val == math.Trunc(val) {
			return int(val), nil
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i, nil
		}
	}
	return 0, &TypeError{Path: strings.Join(path, "."), Expected: "int", Actual: typeName(v)}
}

// GetBool returns a boolean setting. The strings "true" and "false" are
// accepted, as most boolean settings are stored that way.
func (s *Store) GetBool(path ...string) (bool, error) {
	v, err := s.lookup(path)
	if err != nil {
		return false, err
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch val {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, &TypeError{Path: strings.Join(path, "."), Expected: "bool", Actual: typeName(v)}
}

// GetStringSlice returns a list-of-strings setting.
func (s *Store) GetStringSlice(path ...string) ([]string, error) {
	v, err := s.lookup(path)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case []string:
		return val, nil
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, &TypeError{Path: strings.Join(path, "."), Expected: "[]string", Actual: typeName(v)}
			}
			result[i] = str
		}
		return result, nil
	default:
		return nil, &TypeError{Path: strings.Join(path, "."), Expected: "[]string", Actual: typeName(v)}
	}
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
