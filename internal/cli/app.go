package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/adapters/file"
	api "github.com/aretw0/stepgraph/pkg/adapters/http"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/adapters/process"
	"github.com/aretw0/stepgraph/pkg/adapters/redis"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/observability"
	"github.com/aretw0/stepgraph/pkg/persistence/middleware"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/session"
	"github.com/aretw0/stepgraph/pkg/workflows/codereview"
	backend "github.com/redis/go-redis/v9"
)

// App is a fully wired engine plus the services the commands expose.
type App struct {
	Engine   *stepgraph.Engine
	Sessions *session.Manager
	Metrics  *observability.Metrics
	Streams  *api.StreamManager
	Logger   *slog.Logger

	closers []func() error
}

// NewLogger builds the logger selected by cfg.
func NewLogger(cfg Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.LogJSON), nil
}

// NewApp wires stores, tools, hooks and the built-in review graphs.
// A redis client, when cfg asks for one, is pinged before returning.
func NewApp(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	app := &App{
		Metrics: observability.NewMetrics(),
		Streams: api.NewStreamManager(logger),
		Logger:  logger,
	}

	graphs, runs, sessions, locker, err := app.stores(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Engine = stepgraph.New(
		stepgraph.WithRegistry(reg),
		stepgraph.WithGraphStore(graphs),
		stepgraph.WithRunStore(runs),
		stepgraph.WithMaxIterations(cfg.MaxIterations),
		stepgraph.WithLogger(logger),
		stepgraph.WithLifecycleHooks(domain.Combine(
			observability.LoggingHooks(logger),
			app.Metrics.Hooks(),
			app.Streams.Hooks(),
		)),
	)

	if err := app.seedGraphs(ctx, cfg); err != nil {
		_ = app.Close()
		return nil, err
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(app.Engine, sessions, sessionOpts...)
	return app, nil
}

func (a *App) stores(ctx context.Context, cfg Config) (ports.GraphStore, ports.RunStore, ports.SessionStore, ports.DistributedLocker, error) {
	var (
		graphs   ports.GraphStore   = memory.NewGraphStore()
		runs     ports.RunStore     = memory.NewRunStore()
		sessions ports.SessionStore = memory.NewSessionStore()
		locker   ports.DistributedLocker
	)

	if cfg.Store == StoreRedis {
		opts := []redis.Option{redis.WithRunTTL(cfg.RunTTL), redis.WithSessionTTL(cfg.SessionTTL)}
		if cfg.RedisPrefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.RedisPrefix))
		}
		client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
		store := redis.NewFromClient(client, opts...)
		a.closers = append(a.closers, store.Close)

		if err := store.Ping(ctx); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		graphs, runs, sessions = store.Graphs(), store.Runs(), store.Sessions()
		locker = redis.NewLocker(client, prefix)
		a.Logger.Info("using redis store", "addr", cfg.RedisAddr, "prefix", prefix)
	}

	if cfg.RunsDir != "" {
		runs = file.NewRunStore(cfg.RunsDir)
		a.Logger.Info("keeping run records on disk", "dir", cfg.RunsDir)
	}

	if len(cfg.Redact) > 0 {
		redact, err := middleware.NewRedactMiddleware(cfg.Redact)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		runs = middleware.Chain(runs, redact)
	}
	return graphs, runs, sessions, locker, nil
}

// buildRegistry registers the external process tools and the review tools.
// An external tool named AnalyzerTool also feeds detect_basic_issues.
func buildRegistry(cfg Config) (*registry.Registry, error) {
	reg := registry.NewRegistry()

	var reviewOpts []codereview.Option
	if cfg.ToolsFile != "" {
		tools, err := process.LoadTools(cfg.ToolsFile)
		if err != nil {
			return nil, err
		}
		baseDir := process.WithBaseDir(filepath.Dir(cfg.ToolsFile))
		if err := process.RegisterAll(reg, tools, baseDir); err != nil {
			return nil, fmt.Errorf("failed to register process tools: %w", err)
		}
		if analyzer, ok := tools[AnalyzerTool]; ok {
			analyzer.Name = AnalyzerTool
			reviewOpts = append(reviewOpts, codereview.WithAnalyzer(process.New(analyzer, baseDir)))
		}
	}

	if err := codereview.Register(reg, reviewOpts...); err != nil {
		return nil, fmt.Errorf("failed to register review tools: %w", err)
	}
	return reg, nil
}

// seedGraphs stores the review graphs and every graph found in GraphsDir.
func (a *App) seedGraphs(ctx context.Context, cfg Config) error {
	graphs := codereview.Graphs()
	if cfg.GraphsDir != "" {
		loaded, err := file.LoadGraphDir(cfg.GraphsDir)
		if err != nil {
			return err
		}
		graphs = append(graphs, loaded...)
	}
	for _, g := range graphs {
		if err := a.Engine.CreateGraph(ctx, g); err != nil {
			return fmt.Errorf("failed to load graph %q: %w", g.ID, err)
		}
	}
	return nil
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
