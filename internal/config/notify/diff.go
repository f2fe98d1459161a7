package notify

import (
	"sort"

	"github.com/dshills/sitecfg/internal/config/layer"
)

// Diff returns the top-level settings whose effective value differs
// between the old and new user trees.
//
// The effective value of a key is its user value when present and its
// default otherwise; the same rule applies to both sides. A key present in
// old but absent in next is reported as ChangeDelete with the default as
// the new value. Results are sorted by key.
func Diff(old, next, defaults layer.Tree) []Change {
	keys := make(map[string]struct{}, len(old)+len(next))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range next {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []Change
	for _, k := range sorted {
		oldVal, inOld := effective(old, defaults, k)
		newVal, inNew := next[k]
		if newVal == nil {
			inNew = false
		}

		if !inNew {
			newVal = defaults[k]
			if inOld && !layer.Equal(oldVal, newVal) {
				changes = append(changes, Change{Key: k, Type: ChangeDelete, OldValue: oldVal, NewValue: newVal})
			}
			continue
		}

		if !layer.Equal(oldVal, newVal) {
			changes = append(changes, Change{Key: k, Type: ChangeSet, OldValue: oldVal, NewValue: newVal})
		}
	}
	return changes
}

// Cleared returns a ChangeClear entry for every key of old whose value
// differs from its default. The new value is the default.
func Cleared(old, defaults layer.Tree) []Change {
	var changes []Change
	for _, k := range layer.Keys(old) {
		if old[k] == nil || layer.Equal(old[k], defaults[k]) {
			continue
		}
		changes = append(changes, Change{Key: k, Type: ChangeClear, OldValue: old[k], NewValue: defaults[k]})
	}
	return changes
}

// effective returns the user value of k, falling back to its default.
// The boolean reports whether the user tree held the key.
func effective(user, defaults layer.Tree, k string) (any, bool) {
	if v, ok := user[k]; ok && v != nil {
		return v, true
	}
	return defaults[k], false
}
