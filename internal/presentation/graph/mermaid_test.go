package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func reviewGraph() *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:        "review",
		StartNode: "extract",
		Nodes: map[string]domain.NodeDefinition{
			"extract": {Name: "extract", Tool: "extract_functions", Next: "score-it"},
			"score-it": {
				Name:      "score-it",
				Tool:      "suggest",
				Condition: &domain.Condition{Key: "label", Op: domain.OpEqual, Value: `"ok"`},
				OnSuccess: domain.Terminal,
				OnFailure: "extract",
			},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(reviewGraph(), nil)

	tests := []struct {
		name string
		want string
	}{
		{"Header", "graph TD\n"},
		{"Start Node Shape", `extract(("extract <br/> extract_functions"))`},
		{"Conditional Node Shape", `score_it{{"score-it <br/> suggest"}}`},
		{"Unconditional Edge", "extract --> score_it"},
		{"Success Edge Escaped", `score_it -- "label == 'ok'" --> __end__`},
		{"Failure Edge", `score_it -- "else" --> extract`},
		{"End Node", `__end__((("end")))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, got, tt.want)
		})
	}
	assert.NotContains(t, got, "classDef", "no overlay without a run")
	assert.Equal(t, got, graph.GenerateMermaid(reviewGraph(), nil), "output is stable")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	node := "score-it"
	rec := &domain.RunRecord{
		Status:      domain.StatusFailed,
		CurrentNode: &node,
		Log: []domain.LogEntry{
			{Node: "extract"},
			{Node: "score-it"},
			{Node: "extract"},
		},
	}

	got := graph.GenerateMermaid(reviewGraph(), graph.OverlayFromRun(rec))
	assert.Equal(t, 1, strings.Count(got, "class extract visited;"))
	assert.Contains(t, got, "class score_it visited;")
	assert.Contains(t, got, "class score_it failed;")

	rec.Status = domain.StatusCompleted
	rec.Finished = true
	rec.CurrentNode = nil
	got = graph.GenerateMermaid(reviewGraph(), graph.OverlayFromRun(rec))
	assert.NotContains(t, got, "current;")
	assert.NotContains(t, got, "failed;")

	assert.Nil(t, graph.OverlayFromRun(nil))
}
