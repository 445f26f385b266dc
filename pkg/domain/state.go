package domain

import "github.com/mohae/deepcopy"

// State is the shared key/value map that flows from tool to tool.
// Values are plain data: numbers, strings, booleans, slices and nested maps.
// The engine only ever reads the key a condition names.
type State map[string]any

// Clone returns a deep, independent copy of the state.
// Mutating the copy (including nested slices and maps) never affects s.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out, ok := deepcopy.Copy(s).(State)
	if !ok || out == nil {
		return State{}
	}
	return out
}

// Merge returns a copy of s with every key of patch applied on top.
func (s State) Merge(patch map[string]any) State {
	out := s.Clone()
	for k, v := range patch {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies an arbitrary state value.
func CloneValue(v any) any {
	if v == nil {
		return nil
	}
	return deepcopy.Copy(v)
}
