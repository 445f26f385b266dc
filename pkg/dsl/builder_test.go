package dsl

import (
	"errors"
	"testing"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_LoopingFlow(t *testing.T) {
	b := New("review")

	b.Add("extract").
		Do("extract_functions").
		Go("score")

	b.Add("score").
		Do("check_complexity").
		When("quality_score", "ge", 0.8).
		Then(End).
		Else("extract")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "review", g.ID)
	assert.Equal(t, "extract", g.StartNode, "first node added is the start node")
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "score", g.Nodes["extract"].Next)

	score := g.Nodes["score"]
	require.NotNil(t, score.Condition)
	assert.Equal(t, domain.OpGreaterOrEqual, score.Condition.Op)
	assert.Equal(t, 0.8, score.Condition.Value)
	assert.Equal(t, domain.Terminal, score.OnSuccess)
	assert.Equal(t, "extract", score.OnFailure)
}

func TestBuilder_ExplicitStart(t *testing.T) {
	b := New("flow").Start("b")
	b.Add("a").Do("noop")
	b.Add("b").Do("noop").Go("a")

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "b", g.StartNode)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New("flow")
	b.Add("a").Do("first")
	b.Add("a").Go("a")

	g := b.MustBuild()
	assert.Equal(t, domain.NodeDefinition{Name: "a", Tool: "first", Next: "a"}, g.Nodes["a"])
}

func TestBuilder_Terminal(t *testing.T) {
	b := New("flow")
	b.Add("a").Do("noop").When("x", "==", 1).Then("a").Terminal()

	g := b.MustBuild()
	assert.Nil(t, g.Nodes["a"].Condition)
	assert.Empty(t, g.Nodes["a"].Successors())
}

func TestBuilder_Invalid(t *testing.T) {
	b := New("broken")
	b.Add("a").Do("noop").Go("ghost")
	b.Add("b").When("x", "~=", 1)

	_, err := b.Build()
	require.ErrorIs(t, err, domain.ErrGraphInvalid)

	var invalid *domain.GraphInvalidError
	require.True(t, errors.As(err, &invalid))
	fields := make([]string, 0, len(invalid.Issues))
	for _, issue := range invalid.Issues {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"next_node", "tool", "condition_op"}, fields)

	assert.Panics(t, func() { b.MustBuild() })
}

func TestBuilder_Empty(t *testing.T) {
	_, err := New("empty").Build()
	assert.ErrorIs(t, err, domain.ErrGraphInvalid)
}
