package codereview

import (
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/dsl"
)

// Graph ids of the built-in review graphs.
const (
	DefaultGraphID = "code_review_default"
	RefineGraphID  = "code_review_refine"
)

// pipeline declares extract -> complexity -> issues -> suggest. The suggest
// node branches on the quality score; onLow is where a low score goes.
func pipeline(id, onLow string) *domain.GraphDefinition {
	b := dsl.New(id)
	b.Add("extract").Do(ToolExtractFunctions).Go("complexity")
	b.Add("complexity").Do(ToolCheckComplexity).Go("issues")
	b.Add("issues").Do(ToolDetectBasicIssues).Go("suggest")
	b.Add("suggest").
		Do(ToolSuggestImprovements).
		When(KeyQualityScore, ">=", DefaultThreshold).
		Then(dsl.End).
		Else(onLow)
	return b.MustBuild()
}

// DefaultGraph runs the review pipeline once. The final node is conditional
// on the quality score but both outcomes end the run, leaving the decision to
// resubmit with the caller.
func DefaultGraph() *domain.GraphDefinition {
	return pipeline(DefaultGraphID, dsl.End)
}

// RefineGraph loops from suggest back to issues while the score stays below
// the threshold. Since the code does not change between passes the loop ends
// at the safety bound unless the score is already high enough; it exists to
// exercise cyclic routing and to let analyzers with side effects converge.
func RefineGraph() *domain.GraphDefinition {
	return pipeline(RefineGraphID, "issues")
}

// Graphs returns every built-in review graph.
func Graphs() []*domain.GraphDefinition {
	return []*domain.GraphDefinition{DefaultGraph(), RefineGraph()}
}
