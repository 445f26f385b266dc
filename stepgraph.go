package stepgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/internal/validator"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// DefaultBatchSize is the number of runs RunBatch executes at once.
const DefaultBatchSize = 8

// Engine is the high-level entry point of the library.
// It owns the tool registry and the graph and run stores, and drives runs
// through the internal interpreter. Safe for concurrent use once built.
type Engine struct {
	registry      *registry.Registry
	graphs        ports.GraphStore
	runs          ports.RunStore
	runtime       *runtime.Engine
	hooks         domain.LifecycleHooks
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
	maxIterations int
	batchSize     int
}

// Option configures the Engine.
type Option func(*Engine)

// WithRegistry uses reg instead of a fresh, empty registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithGraphStore sets where graph definitions are kept (default: memory).
func WithGraphStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.graphs = store
	}
}

// WithRunStore sets where run records are kept (default: memory).
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.runs = store
	}
}

// WithMaxIterations sets the per-run safety bound (default 10).
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how run ids are minted (default: random UUIDs).
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithBatchSize sets how many runs RunBatch executes concurrently.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

// New creates an Engine. Without options it keeps everything in memory and
// has no tools registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxIterations: domain.DefaultMaxIterations,
		batchSize:     DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = registry.NewRegistry()
	}
	if e.graphs == nil {
		e.graphs = memory.NewGraphStore()
	}
	if e.runs == nil {
		e.runs = memory.NewRunStore()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}

	e.runtime = runtime.NewEngine(e.registry,
		runtime.WithMaxIterations(e.maxIterations),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithClock(e.now),
	)
	return e
}

// Registry returns the tool registry. Register tools before creating graphs
// that use them.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// MaxIterations returns the effective safety bound.
func (e *Engine) MaxIterations() int {
	return e.runtime.MaxIterations()
}

// Validate checks g against the current registry without storing it.
func (e *Engine) Validate(g *domain.GraphDefinition) error {
	return validator.ValidateGraph(g, e.registry)
}

// CreateGraph validates g and stores it, replacing any graph with the same id.
// An invalid graph is rejected with a *domain.GraphInvalidError.
func (e *Engine) CreateGraph(ctx context.Context, g *domain.GraphDefinition) error {
	if err := e.Validate(g); err != nil {
		return err
	}
	if err := e.graphs.Save(ctx, g); err != nil {
		return fmt.Errorf("failed to save graph %q: %w", g.ID, err)
	}
	if unreachable := validator.Unreachable(g); len(unreachable) > 0 {
		e.logger.Warn("graph has unreachable nodes", "graph_id", g.ID, "nodes", unreachable)
	}
	e.logger.Info("graph stored", "graph_id", g.ID, "nodes", len(g.Nodes))
	return nil
}

// GetGraph returns a stored graph.
func (e *Engine) GetGraph(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	return e.graphs.Get(ctx, id)
}

// ListGraphs returns the stored graph ids.
func (e *Engine) ListGraphs(ctx context.Context) ([]string, error) {
	return e.graphs.List(ctx)
}

// Run executes the stored graph graphID against initial and persists the
// resulting record under a new run id.
//
// A graph that does not exist yields (nil, error). Otherwise the record is
// always returned; the error is non-nil when the run failed (the record then
// says why) or when the record could not be saved.
func (e *Engine) Run(ctx context.Context, graphID string, initial domain.State) (*domain.RunRecord, error) {
	g, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, g, initial)
}

// RunGraph validates and executes g without storing the graph. The record is
// persisted like any other run.
func (e *Engine) RunGraph(ctx context.Context, g *domain.GraphDefinition, initial domain.State) (*domain.RunRecord, error) {
	if err := e.Validate(g); err != nil {
		return nil, err
	}
	return e.execute(ctx, g, initial)
}

func (e *Engine) execute(ctx context.Context, g *domain.GraphDefinition, initial domain.State) (*domain.RunRecord, error) {
	rec, runErr := e.runtime.Execute(ctx, e.newID(), g, initial)

	// A cancelled run is still recorded.
	if err := e.runs.Save(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Error("failed to save run", "run_id", rec.RunID, "err", err)
		return rec, errors.Join(runErr, fmt.Errorf("failed to save run %q: %w", rec.RunID, err))
	}
	return rec, runErr
}

// GetRun returns a stored run record.
func (e *Engine) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return e.runs.Get(ctx, runID)
}

// ListRuns returns the stored run ids.
func (e *Engine) ListRuns(ctx context.Context) ([]string, error) {
	return e.runs.List(ctx)
}

// BatchResult is the outcome of one run in a batch.
type BatchResult struct {
	Run *domain.RunRecord
	Err error
}

// RunBatch executes graphID once per initial state, up to the configured
// batch size at a time. Runs are independent: each gets its own id, state and
// log. Results are returned in input order. The error is non-nil only when
// the batch could not start at all, e.g. for an unknown graph.
func (e *Engine) RunBatch(ctx context.Context, graphID string, states []domain.State) ([]BatchResult, error) {
	g, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(e.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]BatchResult, len(states))
	var wg sync.WaitGroup
	for i, state := range states {
		wg.Add(1)
		idx, initial := i, state
		if err := pool.Submit(func() {
			defer wg.Done()
			rec, err := e.execute(ctx, g, initial)
			results[idx] = BatchResult{Run: rec, Err: err}
		}); err != nil {
			wg.Done()
			results[idx] = BatchResult{Err: fmt.Errorf("failed to submit run: %w", err)}
		}
	}
	wg.Wait()
	return results, nil
}
