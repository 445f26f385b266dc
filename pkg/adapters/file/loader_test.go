package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewYAML = `
id: review
start_node: extract
nodes:
  extract:
    tool: extract_functions
    next_node: suggest
  suggest:
    tool: suggest_improvements
    condition_key: quality_score
    condition_op: ">="
    condition_value: 0.8
    next_on_failure: extract
`

const reviewJSON = `{
  "id": "review",
  "start_node": "extract",
  "nodes": {
    "extract": {"name": "extract", "tool": "extract_functions", "next_node": "suggest"},
    "suggest": {
      "name": "suggest",
      "tool": "suggest_improvements",
      "condition_key": "quality_score",
      "condition_op": ">=",
      "condition_value": 0.8,
      "next_on_success": null,
      "next_on_failure": "extract"
    }
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGraph(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
	}{
		{"YAML", "review.yaml", reviewYAML},
		{"JSON", "review.json", reviewJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := file.LoadGraph(writeFile(t, dir, tt.file, tt.body))
			require.NoError(t, err)

			assert.Equal(t, "review", g.ID)
			assert.Equal(t, "extract", g.StartNode)
			assert.Equal(t, "suggest", g.Nodes["extract"].Next)

			suggest := g.Nodes["suggest"]
			assert.Equal(t, "suggest", suggest.Name)
			require.NotNil(t, suggest.Condition)
			assert.Equal(t, domain.OpGreaterOrEqual, suggest.Condition.Op)
			assert.Equal(t, 0.8, suggest.Condition.Value)
			assert.Equal(t, domain.Terminal, suggest.OnSuccess)
			assert.Equal(t, "extract", suggest.OnFailure)
		})
	}
}

func TestLoadGraph_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := file.LoadGraph(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = file.LoadGraph(writeFile(t, dir, "broken.json", "{"))
	assert.Error(t, err)

	_, err = file.LoadGraph(writeFile(t, dir, "typo.yaml", "id: g\nstart: a\n"))
	assert.ErrorIs(t, err, domain.ErrGraphInvalid)
}

func TestLoadGraphDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", reviewJSON)
	writeFile(t, dir, "a.yml", "id: other\nstart_node: x\nnodes:\n  x:\n    tool: noop\n")
	writeFile(t, dir, "notes.txt", "ignored")

	graphs, err := file.LoadGraphDir(dir)
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	assert.Equal(t, "other", graphs[0].ID)
	assert.Equal(t, "review", graphs[1].ID)
}

func TestLoadState(t *testing.T) {
	dir := t.TempDir()

	state, err := file.LoadState(writeFile(t, dir, "state.yaml", "code: |\n  package main\nthreshold: 0.8\n"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", state["code"])
	assert.Equal(t, 0.8, state["threshold"])

	state, err = file.LoadState("")
	require.NoError(t, err)
	assert.Empty(t, state)

	state, err = file.ParseState([]byte(`{"n": 1}`), "json")
	require.NoError(t, err)
	assert.Equal(t, float64(1), state["n"])
}
