package domain

import (
	"reflect"
	"sort"
)

// StateDiff holds the keys that changed between two snapshots.
// Deleted keys are present with a nil value.
type StateDiff map[string]any

// Diff calculates the difference between prev and next.
// If prev is nil, every key of next is reported (initial snapshot).
// It returns nil when nothing changed.
func Diff(prev, next State) StateDiff {
	delta := make(StateDiff)

	for k, newVal := range next {
		oldVal, exists := prev[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range prev {
		if _, exists := next[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// Keys returns the changed keys in deterministic order.
func (d StateDiff) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StepDiffs returns, for each log entry, the changes relative to the previous
// entry (the first entry is compared against initial).
func StepDiffs(initial State, log []LogEntry) []StateDiff {
	out := make([]StateDiff, len(log))
	prev := initial
	for i, entry := range log {
		out[i] = Diff(prev, entry.State)
		prev = entry.State
	}
	return out
}
