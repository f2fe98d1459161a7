// Package layer provides the tree primitives the configuration layers are
// built from.
//
// A configuration tree is a plain map keyed by setting name. Leaves are
// scalars (string, bool, numbers) or sequences; interior nodes are trees.
// Higher layers override lower ones through Merge: trees merge key by key,
// everything else is replaced outright.
package layer

import "errors"

// Tree is a nested configuration tree.
type Tree = map[string]any

// ErrEmptyPath is returned by SetDeep when no key path is given.
var ErrEmptyPath = errors.New("empty key path")

// Source identifies the layer that supplied a resolved value.
type Source uint8

const (
	// SourceNone means no layer defines the value.
	SourceNone Source = iota
	// SourceDefault is the built-in default tree.
	SourceDefault
	// SourceUser is the persisted user tree.
	SourceUser
	// SourceSite is a pattern-matched subconfig.
	SourceSite
	// SourceMerged means the value was merged from more than one layer.
	SourceMerged
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceDefault:
		return "default"
	case SourceUser:
		return "user"
	case SourceSite:
		return "site"
	case SourceMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// IsTree reports whether v is a tree node.
func IsTree(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// GetDeep returns the value at path within v.
// An empty path returns v itself. Missing keys and non-tree intermediates
// report false; a stored nil is treated as missing.
func GetDeep(v any, path []string) (any, bool) {
	current := v
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// SetDeep assigns value at path, creating intermediate trees as needed.
// An intermediate that exists but is not a tree is replaced.
func SetDeep(t Tree, value any, path []string) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	if t == nil {
		return errors.New("nil tree")
	}

	current := t
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(Tree)
			current[key] = next
		}
		current = next
	}

	current[path[len(path)-1]] = value
	return nil
}

// DeleteDeep removes the key at path if its parent tree exists.
// Returns true if a key was removed.
func DeleteDeep(t Tree, path []string) bool {
	if len(path) == 0 {
		return false
	}
	parent, ok := GetDeep(t, path[:len(path)-1])
	if !ok {
		return false
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	key := path[len(path)-1]
	if _, exists := m[key]; !exists {
		return false
	}
	delete(m, key)
	return true
}

// Clone creates a deep copy of a tree.
func Clone(src Tree) Tree {
	if src == nil {
		return nil
	}

	dst := make(Tree, len(src))
	for key, val := range src {
		dst[key] = CloneValue(val)
	}
	return dst
}

// CloneValue creates a deep copy of any tree value.
func CloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return Clone(v)
	case []any:
		return cloneSlice(v)
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return val
	}
}

func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}

	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = CloneValue(val)
	}
	return dst
}
