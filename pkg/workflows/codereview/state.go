package codereview

import (
	"fmt"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// State keys read and written by the review tools.
const (
	KeyCode         = "code"
	KeyFunctions    = "functions"
	KeyComplexity   = "complexity"
	KeyIssues       = "issues"
	KeySuggestions  = "suggestions"
	KeyQualityScore = "quality_score"
	KeyThreshold    = "threshold"
	KeyIteration    = "iteration"
)

// DefaultThreshold is the quality score a submission needs to be accepted.
const DefaultThreshold = 0.8

// InputSchema is what a caller must provide to start a review.
var InputSchema = schema.Schema{
	KeyCode:      schema.String(),
	KeyThreshold: schema.Optional(schema.Float()),
	KeyIteration: schema.Optional(schema.Int()),
}

// Issue is one finding, located by 1-based line number (0 when unknown).
type Issue struct {
	Line    int    `mapstructure:"line" json:"line"`
	Message string `mapstructure:"message" json:"message"`
}

// ReviewState is the typed view of the shared state used by the review tools.
type ReviewState struct {
	Code         string         `mapstructure:"code"`
	Functions    []string       `mapstructure:"functions"`
	Complexity   map[string]int `mapstructure:"complexity"`
	Issues       []Issue        `mapstructure:"issues"`
	Suggestions  []string       `mapstructure:"suggestions"`
	QualityScore float64        `mapstructure:"quality_score"`
	Threshold    float64        `mapstructure:"threshold"`
	Iteration    int            `mapstructure:"iteration"`
}

// Decode reads a ReviewState out of a generic state. Values decoded from JSON
// (float64 line numbers, []any lists) are converted leniently. Keys that are
// not part of a review are ignored.
func Decode(state domain.State) (ReviewState, error) {
	rs := ReviewState{Threshold: DefaultThreshold}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rs,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return rs, err
	}
	if err := decoder.Decode(map[string]any(state)); err != nil {
		return rs, fmt.Errorf("decode review state: %w", err)
	}
	return rs, nil
}

// Accepted reports whether the review met its threshold.
func (rs ReviewState) Accepted() bool {
	return rs.QualityScore >= rs.Threshold
}

func issuesValue(issues []Issue) []any {
	out := make([]any, len(issues))
	for i, is := range issues {
		out[i] = map[string]any{"line": is.Line, "message": is.Message}
	}
	return out
}

func stringsValue(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func complexityValue(in map[string]int) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
