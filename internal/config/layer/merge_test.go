package layer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     Tree
		override Tree
		expected Tree
	}{
		{
			name:     "nil base",
			base:     nil,
			override: Tree{"a": 1},
			expected: Tree{"a": 1},
		},
		{
			name:     "nil override copies base",
			base:     Tree{"a": 1, "b": Tree{"c": 2}},
			override: nil,
			expected: Tree{"a": 1, "b": Tree{"c": 2}},
		},
		{
			name:     "override wins for scalars",
			base:     Tree{"a": 1},
			override: Tree{"a": 2},
			expected: Tree{"a": 2},
		},
		{
			name:     "trees merge key by key",
			base:     Tree{"a": Tree{"x": 1, "y": 2}},
			override: Tree{"a": Tree{"y": 3}},
			expected: Tree{"a": Tree{"x": 1, "y": 3}},
		},
		{
			name: "deep nested merge",
			base: Tree{
				"l1": Tree{"l2": Tree{"keep": true, "swap": "old"}},
			},
			override: Tree{
				"l1": Tree{"l2": Tree{"swap": "new", "add": 1}},
			},
			expected: Tree{
				"l1": Tree{"l2": Tree{"keep": true, "swap": "new", "add": 1}},
			},
		},
		{
			name:     "sequences replace instead of merging",
			base:     Tree{"list": []any{"a", "b", "c"}},
			override: Tree{"list": []any{"z"}},
			expected: Tree{"list": []any{"z"}},
		},
		{
			name:     "scalar override replaces tree",
			base:     Tree{"a": Tree{"x": 1}},
			override: Tree{"a": "flat"},
			expected: Tree{"a": "flat"},
		},
		{
			name:     "tree override replaces scalar",
			base:     Tree{"a": "flat"},
			override: Tree{"a": Tree{"x": 1}},
			expected: Tree{"a": Tree{"x": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.override)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Tree{"a": Tree{"x": 1}}
	override := Tree{"a": Tree{"y": 2}, "list": []any{"q"}}

	got := Merge(base, override)
	got["a"].(Tree)["x"] = 99
	got["list"].([]any)[0] = "changed"

	if diff := cmp.Diff(Tree{"a": Tree{"x": 1}}, base); diff != "" {
		t.Errorf("base mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Tree{"a": Tree{"y": 2}, "list": []any{"q"}}, override); diff != "" {
		t.Errorf("override mutated (-want +got):\n%s", diff)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	x := Tree{
		"nmaps":     Tree{"j": "scrollline 10", "k": "scrollline -10"},
		"hintchars": "hjkl",
		"homepages": []any{"a", "b"},
		"nested":    Tree{"deeper": Tree{"n": 1.5}},
	}
	got := Merge(x, x)
	if !Equal(x, got) {
		t.Errorf("Merge(X, X) = %v, want %v", got, x)
	}
}

func TestMerge_NotSymmetric(t *testing.T) {
	a := Tree{"k": "a"}
	b := Tree{"k": "b"}
	if Equal(Merge(a, b), Merge(b, a)) {
		t.Error("expected Merge(a, b) != Merge(b, a)")
	}
}

func TestMergeValue(t *testing.T) {
	tests := []struct {
		name     string
		base     any
		override any
		expected any
	}{
		{"nil override", "base", nil, "base"},
		{"nil base", nil, "over", "over"},
		{"scalar over scalar", 1, 2, 2},
		{"trees merge", Tree{"a": 1}, Tree{"b": 2}, Tree{"a": 1, "b": 2}},
		{"scalar over tree", Tree{"a": 1}, "x", "x"},
		{"sequence over sequence", []any{1, 2}, []any{3}, []any{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeValue(tt.base, tt.override)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("MergeValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", nil, "x", false},
		{"int vs float", 5, 5.0, true},
		{"int64 vs float", int64(5), float64(5), true},
		{"string vs number", "5", 5, false},
		{"map order", Tree{"a": 1, "b": 2}, Tree{"b": 2, "a": 1}, true},
		{"nested difference", Tree{"a": Tree{"x": 1}}, Tree{"a": Tree{"x": 2}}, false},
		{"string slices", []string{"a"}, []any{"a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	got := Keys(Tree{"b": 1, "a": 2, "c": 3})
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	subs := map[string]Tree{"www": {}, "example": {"priority": 1}}
	if diff := cmp.Diff([]string{"example", "www"}, Keys(subs)); diff != "" {
		t.Errorf("Keys(subtrees) mismatch (-want +got):\n%s", diff)
	}

	if got := Keys(Tree(nil)); len(got) != 0 {
		t.Errorf("Keys(nil) = %v, want empty", got)
	}
}
