package codereview

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/schema"
)

// Tool names registered by Register.
const (
	ToolExtractFunctions    = "extract_functions"
	ToolCheckComplexity     = "check_complexity"
	ToolDetectBasicIssues   = "detect_basic_issues"
	ToolSuggestImprovements = "suggest_improvements"
)

// Statement counts above which a function draws a suggestion.
const (
	complexWarn  = 8
	complexLimit = 15
)

// Option configures the review tools.
type Option func(*config)

type config struct {
	analyzer registry.Tool
}

// WithAnalyzer adds an external analyzer to detect_basic_issues. It runs with
// the review state and may return issues under the "issues" key, which are
// appended to the built-in findings.
func WithAnalyzer(tool registry.Tool) Option {
	return func(c *config) {
		c.analyzer = tool
	}
}

type reviewTool struct {
	description string
	run         func(ctx context.Context, rs *ReviewState, state domain.State) error
}

func (t reviewTool) Description() string { return t.description }

func (t reviewTool) Transform(ctx context.Context, state domain.State) (domain.State, error) {
	if err := schema.Validate(InputSchema, state); err != nil {
		return nil, err
	}
	rs, err := Decode(state)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.State{}
	}
	if err := t.run(ctx, &rs, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Tools returns the four review tools keyed by name.
func Tools(opts ...Option) map[string]registry.Tool {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	return map[string]registry.Tool{
		ToolExtractFunctions: reviewTool{
			description: "Parses the Go source in \"code\" and lists its function names",
			run:         extractFunctions,
		},
		ToolCheckComplexity: reviewTool{
			description: "Counts top-level statements per function",
			run:         checkComplexity,
		},
		ToolDetectBasicIssues: reviewTool{
			description: "Reports syntax errors and common mistakes",
			run: func(ctx context.Context, rs *ReviewState, state domain.State) error {
				return detectBasicIssues(ctx, rs, state, cfg.analyzer)
			},
		},
		ToolSuggestImprovements: reviewTool{
			description: "Turns findings into suggestions and computes the quality score",
			run:         suggestImprovements,
		},
	}
}

// Register adds the review tools to reg.
func Register(reg *registry.Registry, opts ...Option) error {
	tools := Tools(opts...)
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := reg.Register(name, tools[name]); err != nil {
			return err
		}
	}
	return nil
}

func extractFunctions(_ context.Context, rs *ReviewState, state domain.State) error {
	src := parseSource(rs.Code)
	names := []string{}
	if src.valid() {
		for _, fn := range src.funcs() {
			names = append(names, funcName(fn))
		}
	}
	state[KeyFunctions] = stringsValue(names)
	return nil
}

func checkComplexity(_ context.Context, rs *ReviewState, state domain.State) error {
	src := parseSource(rs.Code)
	complexity := map[string]int{}
	if src.valid() {
		for _, fn := range src.funcs() {
			n := 0
			if fn.Body != nil {
				n = len(fn.Body.List)
			}
			complexity[funcName(fn)] = n
		}
	}
	state[KeyComplexity] = complexityValue(complexity)
	return nil
}

func detectBasicIssues(ctx context.Context, rs *ReviewState, state domain.State, analyzer registry.Tool) error {
	src := parseSource(rs.Code)
	var issues []Issue
	if src.valid() {
		issues = src.lint()
	} else {
		issues = src.parseIssues()
	}

	if analyzer != nil {
		// Issues from an earlier pass are not the analyzer's to repeat.
		input := state.Clone()
		delete(input, KeyIssues)
		out, err := analyzer.Transform(ctx, input)
		if err != nil {
			return fmt.Errorf("analyzer: %w", err)
		}
		extra, err := Decode(domain.State{KeyIssues: out[KeyIssues]})
		if err != nil {
			return fmt.Errorf("analyzer output: %w", err)
		}
		issues = append(issues, extra.Issues...)
	}

	if issues == nil {
		issues = []Issue{}
	}
	state[KeyIssues] = issuesValue(issues)
	return nil
}

func suggestImprovements(_ context.Context, rs *ReviewState, state domain.State) error {
	suggestions := []string{}

	names := make([]string, 0, len(rs.Complexity))
	for name := range rs.Complexity {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n := rs.Complexity[name]
		switch {
		case n > complexLimit:
			suggestions = append(suggestions, fmt.Sprintf(
				"Function '%s' looks quite complex with %d statements. Consider breaking it into smaller functions.", name, n))
		case n > complexWarn:
			suggestions = append(suggestions, fmt.Sprintf(
				"Function '%s' could be simplified; it has %d statements.", name, n))
		}
	}

	for _, issue := range rs.Issues {
		line := "?"
		if issue.Line > 0 {
			line = fmt.Sprint(issue.Line)
		}
		suggestions = append(suggestions, fmt.Sprintf("Resolve issue at line %s: %s", line, issue.Message))
	}

	state[KeySuggestions] = stringsValue(suggestions)
	state[KeyQualityScore] = QualityScore(len(rs.Issues), rs.Complexity)
	state[KeyIteration] = rs.Iteration + 1
	return nil
}

// QualityScore rates a submission in [0, 1]. Each issue costs 0.12 (capped at
// 0.6); an average statement count above 5 costs up to 0.3.
func QualityScore(issues int, complexity map[string]int) float64 {
	issuePenalty := math.Min(0.6, 0.12*float64(issues))

	avg := 0.0
	if len(complexity) > 0 {
		total := 0
		for _, n := range complexity {
			total += n
		}
		avg = float64(total) / float64(len(complexity))
	}
	complexityPenalty := math.Min(0.3, math.Max(0, (avg-5)/25))

	return math.Max(0, math.Min(1, 1-issuePenalty-complexityPenalty))
}
