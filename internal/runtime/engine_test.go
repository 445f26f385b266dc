package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, tools map[string]registry.ToolFunc) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	for name, fn := range tools {
		require.NoError(t, r.Register(name, fn))
	}
	return r
}

func identity(_ context.Context, s domain.State) (domain.State, error) { return s, nil }

func TestEngine_LinearGraph(t *testing.T) {
	// Scenario: extract -> done, no conditions.
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"extract_functions": func(_ context.Context, s domain.State) (domain.State, error) {
			s["functions"] = []any{"main"}
			return s, nil
		},
		"noop": identity,
	})
	g := &domain.GraphDefinition{
		ID:        "linear",
		StartNode: "extract",
		Nodes: map[string]domain.NodeDefinition{
			"extract": {Name: "extract", Tool: "extract_functions", Next: "done"},
			"done":    {Name: "done", Tool: "noop"},
		},
	}

	engine := runtime.NewEngine(tools)
	rec, err := engine.Execute(context.Background(), "run-1", g, domain.State{"code": "package main"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "linear", rec.GraphID)
	assert.True(t, rec.Finished)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Nil(t, rec.CurrentNode)
	require.Len(t, rec.Log, 2)
	assert.Equal(t, "extract", rec.Log[0].Node)
	assert.Equal(t, "done", rec.Log[1].Node)
	assert.Equal(t, []any{"main"}, rec.FinalState["functions"])
	assert.Equal(t, rec.FinalState, rec.Log[len(rec.Log)-1].State)
	assert.False(t, rec.BoundReached())
}

func TestEngine_SelfLoopHitsBound(t *testing.T) {
	// Scenario: check loops while score < 0.8; the tool never raises it above 0.5.
	calls := 0
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"score": func(_ context.Context, s domain.State) (domain.State, error) {
			calls++
			s["score"] = 0.5
			return s, nil
		},
	})
	g := &domain.GraphDefinition{
		ID:        "loop",
		StartNode: "check",
		Nodes: map[string]domain.NodeDefinition{
			"check": {
				Name:      "check",
				Tool:      "score",
				Condition: &domain.Condition{Key: "score", Op: domain.OpLessThan, Value: 0.8},
				OnSuccess: "check",
				OnFailure: domain.Terminal,
			},
		},
	}

	engine := runtime.NewEngine(tools, runtime.WithMaxIterations(10))
	rec, err := engine.Execute(context.Background(), "run-loop", g, domain.State{})
	require.NoError(t, err)

	assert.True(t, rec.Finished)
	assert.Len(t, rec.Log, 10)
	assert.Equal(t, 10, calls)
	assert.Equal(t, 10, rec.Iterations)
	assert.True(t, rec.BoundReached())
	assert.Empty(t, rec.ErrorKind)
}

func TestEngine_TerminalOnLastAllowedStep(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "pair",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {Name: "a", Tool: "noop", Next: "b"},
			"b": {Name: "b", Tool: "noop"},
		},
	}

	engine := runtime.NewEngine(tools, runtime.WithMaxIterations(2))
	rec, err := engine.Execute(context.Background(), "run-pair", g, domain.State{})
	require.NoError(t, err)

	assert.True(t, rec.Finished)
	assert.Equal(t, 2, rec.Iterations)
	assert.Equal(t, 2, rec.MaxIterations)
	assert.False(t, rec.BoundReached())
	assert.False(t, rec.StoppedAtBound)
}

func TestEngine_DefaultBound(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "ping-pong",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {Name: "a", Tool: "noop", Next: "b"},
			"b": {Name: "b", Tool: "noop", Next: "a"},
		},
	}

	engine := runtime.NewEngine(tools, runtime.WithMaxIterations(0))
	assert.Equal(t, domain.DefaultMaxIterations, engine.MaxIterations())

	rec, err := engine.Execute(context.Background(), "r", g, nil)
	require.NoError(t, err)
	assert.Len(t, rec.Log, domain.DefaultMaxIterations)
	assert.Equal(t, "b", rec.Log[len(rec.Log)-1].Node)
}

func TestEngine_ConditionalBranches(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "branch",
		StartNode: "gate",
		Nodes: map[string]domain.NodeDefinition{
			"gate": {
				Name:      "gate",
				Tool:      "noop",
				Condition: &domain.Condition{Key: "quality_score", Op: domain.OpGreaterOrEqual, Value: 0.8},
				OnSuccess: "accept",
				OnFailure: "reject",
			},
			"accept": {Name: "accept", Tool: "noop"},
			"reject": {Name: "reject", Tool: "noop"},
		},
	}
	engine := runtime.NewEngine(tools)

	tests := []struct {
		name  string
		state domain.State
		want  string
	}{
		{"Equal Routes To Success", domain.State{"quality_score": 0.8}, "accept"},
		{"Above Routes To Success", domain.State{"quality_score": 0.95}, "accept"},
		{"Below Routes To Failure", domain.State{"quality_score": 0.2}, "reject"},
		{"Missing Key Routes To Failure", domain.State{}, "reject"},
		{"Type Mismatch Routes To Failure", domain.State{"quality_score": "high"}, "reject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := engine.Execute(context.Background(), "r", g, tt.state)
			require.NoError(t, err)
			require.Len(t, rec.Log, 2)
			assert.Equal(t, tt.want, rec.Log[1].Node)
		})
	}
}

func TestEngine_ToolNotRegistered(t *testing.T) {
	t.Run("At Start", func(t *testing.T) {
		g := &domain.GraphDefinition{
			ID:        "g",
			StartNode: "a",
			Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "ghost"}},
		}
		rec, err := runtime.NewEngine(registry.NewRegistry()).Execute(context.Background(), "r", g, domain.State{"x": 1})

		require.ErrorIs(t, err, domain.ErrToolNotRegistered)
		assert.Empty(t, rec.Log)
		assert.Equal(t, domain.StatusFailed, rec.Status)
		assert.Equal(t, domain.ErrorKindToolNotRegistered, rec.ErrorKind)
		assert.False(t, rec.Finished)
		assert.Equal(t, "a", rec.Current())
		assert.Equal(t, domain.State{"x": 1}, rec.FinalState)
	})

	t.Run("After One Step", func(t *testing.T) {
		tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
		g := &domain.GraphDefinition{
			ID:        "g",
			StartNode: "a",
			Nodes: map[string]domain.NodeDefinition{
				"a": {Name: "a", Tool: "noop", Next: "b"},
				"b": {Name: "b", Tool: "ghost"},
			},
		}
		rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, nil)

		require.ErrorIs(t, err, domain.ErrToolNotRegistered)
		assert.Len(t, rec.Log, 1)
		assert.Equal(t, "b", rec.Current())
	})
}

func TestEngine_ToolExecutionError(t *testing.T) {
	boom := errors.New("analyzer crashed")
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"noop": identity,
		"fail": func(_ context.Context, _ domain.State) (domain.State, error) { return nil, boom },
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {Name: "a", Tool: "noop", Next: "b"},
			"b": {Name: "b", Tool: "fail", Next: "c"},
			"c": {Name: "c", Tool: "noop"},
		},
	}

	rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, domain.State{"k": "v"})

	var toolErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "b", toolErr.Node)
	assert.Equal(t, "fail", toolErr.Tool)
	assert.Equal(t, domain.ErrorKindToolExecution, rec.ErrorKind)
	assert.Len(t, rec.Log, 1, "partial log is preserved")
	assert.Equal(t, domain.State{"k": "v"}, rec.FinalState)
}

func TestEngine_ToolPanicBecomesError(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"panic": func(_ context.Context, _ domain.State) (domain.State, error) { panic("nil map") },
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "panic"}},
	}

	rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool panicked")
	assert.Equal(t, domain.ErrorKindToolExecution, rec.ErrorKind)
}

func TestEngine_RoutingError(t *testing.T) {
	// A graph that skipped validation: the engine re-checks at run time.
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "noop", Next: "ghost"}},
	}

	rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, nil)

	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, "a", routeErr.From)
	assert.Equal(t, "ghost", routeErr.To)
	assert.Equal(t, domain.ErrorKindRouting, rec.ErrorKind)
	assert.Len(t, rec.Log, 1)

	g.StartNode = "missing"
	rec, err = runtime.NewEngine(tools).Execute(context.Background(), "r", g, nil)
	require.ErrorAs(t, err, &routeErr)
	assert.Empty(t, rec.Log)
}

func TestEngine_SnapshotsAreIndependent(t *testing.T) {
	// The tool appends to a nested slice in place on every call.
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"append": func(_ context.Context, s domain.State) (domain.State, error) {
			items, _ := s["items"].([]any)
			s["items"] = append(items, len(items))
			return s, nil
		},
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {Name: "a", Tool: "append", Next: "b"},
			"b": {Name: "b", Tool: "append", Next: "c"},
			"c": {Name: "c", Tool: "append"},
		},
	}
	initial := domain.State{"items": []any{}}

	rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, initial)
	require.NoError(t, err)

	assert.Equal(t, []any{0}, rec.Log[0].State["items"])
	assert.Equal(t, []any{0, 1}, rec.Log[1].State["items"])
	assert.Equal(t, []any{0, 1, 2}, rec.Log[2].State["items"])
	assert.Equal(t, []any{}, initial["items"], "caller's initial state is untouched")

	rec.FinalState["items"] = "mutated"
	assert.Equal(t, []any{0, 1, 2}, rec.Log[2].State["items"])
}

func TestEngine_NilStateFromTool(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"clear": func(_ context.Context, _ domain.State) (domain.State, error) { return nil, nil },
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "clear"}},
	}

	rec, err := runtime.NewEngine(tools).Execute(context.Background(), "r", g, domain.State{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, domain.State{}, rec.FinalState)
	assert.Equal(t, domain.State{}, rec.Log[0].State)
}

func TestEngine_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"cancel": func(_ context.Context, s domain.State) (domain.State, error) {
			cancel()
			return s, nil
		},
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {Name: "a", Tool: "cancel", Next: "a"},
		},
	}

	rec, err := runtime.NewEngine(tools).Execute(ctx, "r", g, nil)
	require.ErrorIs(t, err, domain.ErrRunCancelled)
	assert.Equal(t, domain.ErrorKindCancelled, rec.ErrorKind)
	assert.Len(t, rec.Log, 1, "cancellation is checked at the next step boundary")
}

func TestEngine_LifecycleHooks(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "start",
		Nodes: map[string]domain.NodeDefinition{
			"start":  {Name: "start", Tool: "noop", Next: "step_2"},
			"step_2": {Name: "step_2", Tool: "noop"},
		},
	}

	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}
	hooks := domain.LifecycleHooks{
		OnRunStart:   func(_ context.Context, e *domain.RunEvent) { record("run_start") },
		OnNodeEnter:  func(_ context.Context, e *domain.NodeEvent) { record("enter:" + e.NodeID) },
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) { record("tool:" + e.ToolName) },
		OnNodeLeave:  func(_ context.Context, e *domain.NodeEvent) { record("leave:" + e.NodeID + "->" + e.Next) },
		OnRunEnd:     func(_ context.Context, e *domain.RunEvent) { record("run_end:" + string(e.Status)) },
	}

	_, err := runtime.NewEngine(tools, runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), "r", g, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run_start",
		"enter:start", "tool:noop", "leave:start->step_2",
		"enter:step_2", "tool:noop", "leave:step_2->",
		"run_end:completed",
	}, events)
}

func TestEngine_ClockStampsLog(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tools := newRegistry(t, map[string]registry.ToolFunc{"noop": identity})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes:     map[string]domain.NodeDefinition{"a": {Name: "a", Tool: "noop"}},
	}

	rec, err := runtime.NewEngine(tools, runtime.WithClock(func() time.Time { return fixed })).
		Execute(context.Background(), "r", g, nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, rec.Log[0].Timestamp)
	assert.Equal(t, fixed, rec.StartedAt)
	assert.Equal(t, fixed, rec.FinishedAt)
}

func TestEngine_ConcurrentRuns(t *testing.T) {
	tools := newRegistry(t, map[string]registry.ToolFunc{
		"inc": func(_ context.Context, s domain.State) (domain.State, error) {
			n, _ := s["n"].(int)
			s["n"] = n + 1
			return s, nil
		},
	})
	g := &domain.GraphDefinition{
		ID:        "g",
		StartNode: "a",
		Nodes: map[string]domain.NodeDefinition{
			"a": {
				Name:      "a",
				Tool:      "inc",
				Condition: &domain.Condition{Key: "n", Op: domain.OpLessThan, Value: 5},
				OnSuccess: "a",
			},
		},
	}
	engine := runtime.NewEngine(tools, runtime.WithMaxIterations(100))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			rec, err := engine.Execute(context.Background(), "r", g, domain.State{"n": start % 3})
			assert.NoError(t, err)
			assert.Equal(t, 5, rec.FinalState["n"])
		}(i)
	}
	wg.Wait()
}
