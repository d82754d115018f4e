package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		old         State
		new         State
		wantSet     map[string]any
		wantRemoved []string
	}{
		{
			name:    "Initial Load (Old is Nil)",
			old:     nil,
			new:     State{"a": 1},
			wantSet: map[string]any{"a": 1},
		},
		{
			name: "No Changes",
			old:  State{"a": 1, "list": []string{"x"}},
			new:  State{"a": 1, "list": []string{"x"}},
		},
		{
			name:    "Added & Modified",
			old:     State{"a": 1, "b": "old"},
			new:     State{"a": 1, "b": "new", "c": true},
			wantSet: map[string]any{"b": "new", "c": true},
		},
		{
			name:        "Deletion",
			old:         State{"a": 1, "b": 2, "c": 3},
			new:         State{"a": 1},
			wantRemoved: []string{"b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got.Set, tt.wantSet) {
				t.Errorf("Diff().Set = %v, want %v", got.Set, tt.wantSet)
			}
			if !reflect.DeepEqual(got.Removed, tt.wantRemoved) {
				t.Errorf("Diff().Removed = %v, want %v", got.Removed, tt.wantRemoved)
			}
			if got.IsEmpty() != (tt.wantSet == nil && tt.wantRemoved == nil) {
				t.Errorf("Diff().IsEmpty() = %v", got.IsEmpty())
			}
		})
	}
}

func TestDiffKeys(t *testing.T) {
	d := Diff(State{"z": 1, "a": 1}, State{"a": 2, "m": 3})
	want := []string{"a", "m", "z"}
	if !reflect.DeepEqual(d.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", d.Keys(), want)
	}
}

func TestStepDiffs(t *testing.T) {
	log := []LogEntry{
		{NodeID: "split", StateSnapshot: State{"text": "abc"}},
		{NodeID: "count", StateSnapshot: State{"text": "abc", "chunks": []string{"abc"}}},
	}
	final := State{"text": "abc", "chunks": []string{"abc"}, "n": 1}

	diffs := StepDiffs(log, final)
	if len(diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(diffs))
	}
	if !reflect.DeepEqual(diffs[0].Keys(), []string{"chunks"}) {
		t.Errorf("step 0 keys = %v", diffs[0].Keys())
	}
	if !reflect.DeepEqual(diffs[1].Keys(), []string{"n"}) {
		t.Errorf("step 1 keys = %v", diffs[1].Keys())
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Diff Omits Fields", func(t *testing.T) {
		bytes, _ := json.Marshal(Diff(State{"a": 1}, State{"a": 1}))
		if string(bytes) != "{}" {
			t.Errorf("expected empty object, got: %s", bytes)
		}
	})

	t.Run("Removed Listed", func(t *testing.T) {
		bytes, _ := json.Marshal(Diff(State{"a": 1, "b": 2}, State{"a": 1}))
		if !strings.Contains(string(bytes), `"removed":["b"]`) {
			t.Errorf("JSON should list removed key, got: %s", bytes)
		}
	})
}
