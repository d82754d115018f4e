package domain

import (
	"reflect"
	"sort"
)

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for step-by-step reports.
type StateDiff struct {
	// Set contains added or modified keys with their new values.
	Set map[string]any `json:"set,omitempty"`

	// Removed lists keys present in the old state but not in the new one, sorted.
	Removed []string `json:"removed,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// A nil oldState is treated as empty, so every key of newState shows up in Set.
func Diff(oldState, newState State) StateDiff {
	var d StateDiff

	for k, newVal := range newState {
		oldVal, exists := oldState[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			if d.Set == nil {
				d.Set = make(map[string]any)
			}
			d.Set[k] = newVal
		}
	}

	for k := range oldState {
		if _, exists := newState[k]; !exists {
			d.Removed = append(d.Removed, k)
		}
	}
	sort.Strings(d.Removed)

	return d
}

// Keys returns the sorted names of all keys touched by the diff.
func (d StateDiff) Keys() []string {
	keys := make([]string, 0, len(d.Set)+len(d.Removed))
	for k := range d.Set {
		keys = append(keys, k)
	}
	keys = append(keys, d.Removed...)
	sort.Strings(keys)
	return keys
}

// IsEmpty checks if the diff contains any changes.
func (d StateDiff) IsEmpty() bool {
	return len(d.Set) == 0 && len(d.Removed) == 0
}

// StepDiffs returns, for each log entry, what the node at that position changed.
// Entry i compares snapshot i with snapshot i+1; the last entry compares with final.
func StepDiffs(log []LogEntry, final State) []StateDiff {
	diffs := make([]StateDiff, len(log))
	for i, entry := range log {
		next := final
		if i+1 < len(log) {
			next = log[i+1].StateSnapshot
		}
		diffs[i] = Diff(entry.StateSnapshot, next)
	}
	return diffs
}
