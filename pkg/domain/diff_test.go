package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  State
		new  State
		want StateDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  State{"a": 1},
			want: StateDiff{"a": 1},
		},
		{
			name: "No Changes",
			old:  State{"a": 1, "list": []any{"x"}},
			new:  State{"a": 1, "list": []any{"x"}},
			want: nil,
		},
		{
			name: "Added & Modified",
			old:  State{"a": 1, "b": "old"},
			new:  State{"a": 1, "b": "new", "c": true},
			want: StateDiff{"b": "new", "c": true},
		},
		{
			name: "Deletion",
			old:  State{"a": 1, "b": 2},
			new:  State{"a": 1},
			want: StateDiff{"b": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.old, tt.new))
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	diff := Diff(State{"a": 1, "b": 2}, State{"a": 1})
	require.NotNil(t, diff)

	bytes, err := json.Marshal(diff)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(bytes), `"b":null`), "deletions serialize as null, got %s", bytes)
}

func TestStepDiffs(t *testing.T) {
	initial := State{"code": "x"}
	log := []LogEntry{
		{Node: "extract", State: State{"code": "x", "functions": []any{"f"}}},
		{Node: "done", State: State{"code": "x", "functions": []any{"f"}}},
	}

	diffs := StepDiffs(initial, log)
	require.Len(t, diffs, 2)
	assert.Equal(t, []string{"functions"}, diffs[0].Keys())
	assert.Nil(t, diffs[1])
}
