package dto

import (
	"testing"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGraph(t *testing.T) {
	raw := map[string]any{
		"id":         "review",
		"start_node": "extract",
		"nodes": map[string]any{
			"extract": map[string]any{"tool": "extract_functions", "next_node": "suggest"},
			"suggest": map[string]any{
				"name":            "suggest",
				"tool":            "suggest_improvements",
				"condition_key":   "quality_score",
				"condition_op":    "ge",
				"condition_value": 0.8,
				"next_on_success": nil,
				"next_on_failure": "extract",
			},
		},
	}

	g, err := DecodeGraph(raw)
	require.NoError(t, err)

	assert.Equal(t, "review", g.ID)
	assert.Equal(t, "extract", g.Nodes["extract"].Name, "name defaults to the key")
	assert.Nil(t, g.Nodes["extract"].Condition)

	suggest := g.Nodes["suggest"]
	require.NotNil(t, suggest.Condition)
	assert.Equal(t, domain.OpGreaterOrEqual, suggest.Condition.Op)
	assert.Equal(t, 0.8, suggest.Condition.Value)
	assert.Equal(t, domain.Terminal, suggest.OnSuccess)
	assert.Equal(t, "extract", suggest.OnFailure)
}

func TestDecodeGraph_KeepsUnknownOperator(t *testing.T) {
	raw := map[string]any{
		"id":         "g",
		"start_node": "a",
		"nodes": map[string]any{
			"a": map[string]any{"tool": "t", "condition_key": "k", "condition_op": "~="},
		},
	}
	g, err := DecodeGraph(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.Operator("~="), g.Nodes["a"].Condition.Op)
	assert.False(t, g.Nodes["a"].Condition.Op.Valid())
}

func TestDecodeGraph_RejectsUnknownFields(t *testing.T) {
	raw := map[string]any{
		"id":         "g",
		"start_node": "a",
		"nodes": map[string]any{
			"a": map[string]any{"tool": "t", "nxt_node": "b"},
		},
	}
	_, err := DecodeGraph(raw)
	assert.ErrorIs(t, err, domain.ErrGraphInvalid)
}

func TestFromDomain_RoundTrip(t *testing.T) {
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {
				Name:      "a",
				Tool:      "score",
				Condition: &domain.Condition{Key: "score", Op: domain.OpLessThan, Value: 0.8},
				OnSuccess: "a",
			},
		},
	}

	doc := FromDomain(g)
	assert.Equal(t, "score", doc.Nodes["a"].ConditionKey)
	assert.Equal(t, "<", doc.Nodes["a"].ConditionOp)
	assert.Equal(t, g, doc.ToDomain())
}
