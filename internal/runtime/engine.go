package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// Engine is the graph interpreter.
// It holds no per-run state; one Engine may execute many runs concurrently.
type Engine struct {
	tools         registry.Resolver
	maxIterations int
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	now           func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithMaxIterations sets the safety bound. Values <= 0 select domain.DefaultMaxIterations.
func WithMaxIterations(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine resolving tools through tools.
func NewEngine(tools registry.Resolver, opts ...EngineOption) *Engine {
	e := &Engine{
		tools:         tools,
		maxIterations: domain.DefaultMaxIterations,
		logger:        logging.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxIterations returns the configured safety bound.
func (e *Engine) MaxIterations() int {
	return e.maxIterations
}

// Execute runs g from its start node against a copy of initial.
//
// The returned record is never nil. The error is non-nil only when the run
// ends in domain.StatusFailed; the record then holds the partial log.
// Reaching the safety bound is a normal completion.
func (e *Engine) Execute(ctx context.Context, runID string, g *domain.GraphDefinition, initial domain.State) (*domain.RunRecord, error) {
	rec := domain.NewRunRecord(runID, g.ID, g.StartNode, initial, e.maxIterations, e.now())
	logger := e.logger.With("run_id", runID, "graph_id", g.ID)
	e.emitRunStart(ctx, rec)

	current := rec.FinalState
	nodeName := g.StartNode
	from := ""

	for {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, logger, rec, nodeName, current, fmt.Errorf("%w: %v", domain.ErrRunCancelled, err))
		}

		node, ok := g.Node(nodeName)
		if !ok {
			return e.fail(ctx, logger, rec, nodeName, current, &domain.RoutingError{From: from, To: nodeName})
		}

		tool, err := e.tools.Resolve(node.Tool)
		if err != nil {
			return e.fail(ctx, logger, rec, nodeName, current, fmt.Errorf("node %q: %w", node.Name, err))
		}

		e.emitNodeEnter(ctx, rec, node.Name)

		started := e.now()
		next, err := invoke(ctx, tool, current.Clone())
		e.emitToolReturn(ctx, rec, node, e.now().Sub(started), err != nil)
		if err != nil {
			return e.fail(ctx, logger, rec, nodeName, current, &domain.ToolExecutionError{Node: node.Name, Tool: node.Tool, Cause: err})
		}
		if next == nil {
			next = domain.State{}
		}

		rec.Log = append(rec.Log, domain.LogEntry{
			Node:      node.Name,
			Timestamp: e.now(),
			State:     next.Clone(),
		})
		current = next
		rec.Iterations++

		target, condErr := resolveNext(node, current)
		if condErr != nil {
			logger.Debug("condition evaluation failed, taking failure branch",
				"node", node.Name, "err", condErr)
		}
		logger.Debug("node executed",
			"node", node.Name,
			"tool", node.Tool,
			"iteration", rec.Iterations,
			"next", target)
		e.emitNodeLeave(ctx, rec, node.Name, target)

		if target == domain.Terminal {
			return e.complete(ctx, logger, rec, current), nil
		}
		if rec.Iterations >= e.maxIterations {
			logger.Warn("iteration bound reached, completing run",
				"max_iterations", e.maxIterations,
				"next", target)
			rec.StoppedAtBound = true
			return e.complete(ctx, logger, rec, current), nil
		}

		from, nodeName = nodeName, target
	}
}

// invoke calls the tool, converting a panic into an error so one bad tool
// cannot take the host process down.
func invoke(ctx context.Context, tool registry.Tool, state domain.State) (out domain.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Transform(ctx, state)
}

func (e *Engine) complete(ctx context.Context, logger *slog.Logger, rec *domain.RunRecord, final domain.State) *domain.RunRecord {
	rec.Status = domain.StatusCompleted
	rec.Finished = true
	rec.CurrentNode = nil
	rec.FinalState = final
	rec.FinishedAt = e.now()

	logger.Debug("run completed", "iterations", rec.Iterations, "bound_reached", rec.BoundReached())
	e.emitRunEnd(ctx, rec)
	return rec
}

func (e *Engine) fail(ctx context.Context, logger *slog.Logger, rec *domain.RunRecord, nodeName string, final domain.State, err error) (*domain.RunRecord, error) {
	node := nodeName
	rec.Status = domain.StatusFailed
	rec.Finished = false
	rec.CurrentNode = &node
	rec.FinalState = final
	rec.ErrorKind = domain.KindOf(err)
	rec.Error = err.Error()
	rec.FinishedAt = e.now()

	logger.Error("run failed", "node", nodeName, "kind", rec.ErrorKind, "err", err)
	e.emitRunEnd(ctx, rec)
	return rec, err
}
