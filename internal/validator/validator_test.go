package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	r := registry.NewRegistry()
	noop := func(_ context.Context, s domain.State) (domain.State, error) { return s, nil }
	r.MustRegister("extract_functions", registry.ToolFunc(noop))
	r.MustRegister("score", registry.ToolFunc(noop))
	return r
}

func issuesOf(t *testing.T, err error) []domain.ValidationIssue {
	t.Helper()
	var invalid *domain.GraphInvalidError
	require.True(t, errors.As(err, &invalid), "expected GraphInvalidError, got %v", err)
	return invalid.Issues
}

func TestValidateGraph(t *testing.T) {
	t.Run("Valid Graph", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "review",
			StartNode: "extract",
			Nodes: map[string]domain.NodeDefinition{
				"extract": {Name: "extract", Tool: "extract_functions", Next: "check"},
				"check": {
					Name:      "check",
					Tool:      "score",
					Condition: &domain.Condition{Key: "score", Op: domain.OpLessThan, Value: 0.8},
					OnSuccess: "check",
					OnFailure: domain.Terminal,
				},
			},
		}
		assert.NoError(t, ValidateGraph(g, testRegistry()))
	})

	t.Run("Broken Link", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "broken",
			StartNode: "start",
			Nodes: map[string]domain.NodeDefinition{
				"start": {Name: "start", Tool: "score", Next: "ghost_node"},
			},
		}
		err := ValidateGraph(g, testRegistry())
		require.ErrorIs(t, err, domain.ErrGraphInvalid)
		issues := issuesOf(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "next_node", issues[0].Field)
		assert.Contains(t, issues[0].Reason, "ghost_node")
	})

	t.Run("Missing Start Node", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "nostart",
			StartNode: "nowhere",
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "a", Tool: "score"},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		assert.Equal(t, "start_node", issues[0].Field)
	})

	t.Run("Unregistered Tool", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "tools",
			StartNode: "a",
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "a", Tool: "pylint"},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		assert.Equal(t, "tool", issues[0].Field)

		assert.NoError(t, ValidateGraph(g, nil), "nil resolver skips tool resolution")
	})

	t.Run("Both Unconditional And Conditional", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "ambiguous",
			StartNode: "a",
			Nodes: map[string]domain.NodeDefinition{
				"a": {
					Name:      "a",
					Tool:      "score",
					Next:      "a",
					Condition: &domain.Condition{Key: "score", Op: domain.OpEqual, Value: 1},
					OnSuccess: "a",
				},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		assert.Equal(t, "routing", issues[0].Field)
	})

	t.Run("Branch Without Condition", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "dangling",
			StartNode: "a",
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "a", Tool: "score", OnFailure: "a"},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		assert.Equal(t, "routing", issues[0].Field)
	})

	t.Run("Unknown Operator And Empty Key", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "ops",
			StartNode: "a",
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "a", Tool: "score", Condition: &domain.Condition{Op: "~="}},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		fields := []string{}
		for _, i := range issues {
			fields = append(fields, i.Field)
		}
		assert.ElementsMatch(t, []string{"condition_key", "condition_op"}, fields)
	})

	t.Run("Name Mismatch And Empty Graph Fields", func(t *testing.T) {
		g := &domain.GraphDefinition{
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "b", Tool: "score"},
			},
		}
		issues := issuesOf(t, ValidateGraph(g, testRegistry()))
		assert.Len(t, issues, 3) // id, start_node, name
	})

	t.Run("Nil Graph", func(t *testing.T) {
		assert.ErrorIs(t, ValidateGraph(nil, nil), domain.ErrGraphInvalid)
	})
}

func TestUnreachable(t *testing.T) {
	g := &domain.GraphDefinition{
		ID:        "reach",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a":      {Name: "a", Tool: "score", Next: "b"},
			"b":      {Name: "b", Tool: "score"},
			"orphan": {Name: "orphan", Tool: "score", Next: "a"},
		},
	}
	assert.Equal(t, []string{"orphan"}, Unreachable(g))
}
