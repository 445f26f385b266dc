package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--tools", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stepgraph version")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
id: good
start_node: extract
nodes:
  extract:
    tool: extract_functions
  orphan:
    tool: check_complexity
`), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
id: bad
start_node: extract
nodes:
  extract:
    tool: pylint
`), 0o644))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, `node "orphan" is unreachable`)

	out, err = execute(t, "validate", good, bad)
	assert.ErrorContains(t, err, "1 of 2 graphs are invalid")
	assert.Contains(t, out, "pylint")
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", "--graph-id", "code_review_default")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "extract")
}
