package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that log every event at Debug level,
// and failed runs at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run_start", "run_id", e.RunID, "graph_id", e.GraphID)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node", e.NodeID, "iteration", e.Iteration)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return",
				"run_id", e.RunID,
				"tool", e.ToolName,
				"duration", e.Duration,
				"is_error", e.IsError)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node", e.NodeID, "next", e.Next)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelDebug
			if e.Status == domain.StatusFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_end",
				"run_id", e.RunID,
				"status", e.Status,
				"error_kind", e.ErrorKind,
				"iterations", e.Iterations)
		},
	}
}
