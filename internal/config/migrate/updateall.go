package migrate

import (
	"context"
	"errors"
)

// UpdateAll rewrites the user value at path in the main tree and in every
// site override. fn receives each present, truthy value and returns the
// replacement and whether to write it.
func UpdateAll(ctx context.Context, t Target, path []string, fn func(any) (any, bool)) error {
	var errs []error

	if v, ok := t.User(path...); ok && Truthy(v) {
		if nv, write := fn(v); write {
			errs = append(errs, t.SetPath(ctx, path, nv))
		}
	}

	for _, pattern := range t.Patterns() {
		sitePath := append([]string{"subconfigs", pattern}, path...)
		v, ok := t.User(sitePath...)
		if !ok || !Truthy(v) {
			continue
		}
		if nv, write := fn(v); write {
			errs = append(errs, t.SetURL(ctx, pattern, path, nv))
		}
	}

	return errors.Join(errs...)
}

// Truthy reports whether v counts as set: not nil, false, zero or "".
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}
