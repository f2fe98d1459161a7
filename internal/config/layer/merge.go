package layer

import (
	"encoding/json"
	"reflect"
	"sort"
)

// Merge returns a new tree combining base and override.
// Keys in override win. When both sides hold a tree for the same key the
// two are merged recursively; sequences and scalars are replaced.
// Neither input is modified. A nil override yields a copy of base.
func Merge(base, override Tree) Tree {
	result := Clone(base)
	if result == nil {
		result = make(Tree, len(override))
	}

	for key, overVal := range override {
		baseVal, exists := result[key]
		if !exists {
			result[key] = CloneValue(overVal)
			continue
		}

		baseMap, baseIsMap := baseVal.(map[string]any)
		overMap, overIsMap := overVal.(map[string]any)
		if baseIsMap && overIsMap {
			result[key] = Merge(baseMap, overMap)
		} else {
			result[key] = CloneValue(overVal)
		}
	}

	return result
}

// MergeValue is the value-level form of Merge.
// A nil override copies base; two trees are merged; in every other case the
// override replaces base.
func MergeValue(base, override any) any {
	if override == nil {
		return CloneValue(base)
	}
	baseMap, baseIsMap := base.(map[string]any)
	overMap, overIsMap := override.(map[string]any)
	if baseIsMap && overIsMap {
		return Merge(baseMap, overMap)
	}
	return CloneValue(override)
}

// Equal reports whether a and b serialize to the same JSON document.
// Numbers compare by value regardless of Go type and map order is ignored.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ja) == string(jb)
}

// Keys returns the keys of m in sorted order.
func Keys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
