package runtime

import (
	"context"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func (e *Engine) base(rec *domain.RunRecord, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		RunID:     rec.RunID,
		GraphID:   rec.GraphID,
	}
}

func (e *Engine) emitRunStart(ctx context.Context, rec *domain.RunRecord) {
	if e.hooks.OnRunStart == nil {
		return
	}
	e.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: e.base(rec, domain.EventRunStart),
		Status:    rec.Status,
	})
}

func (e *Engine) emitRunEnd(ctx context.Context, rec *domain.RunRecord) {
	if e.hooks.OnRunEnd == nil {
		return
	}
	e.hooks.OnRunEnd(ctx, &domain.RunEvent{
		EventBase:  e.base(rec, domain.EventRunEnd),
		Status:     rec.Status,
		ErrorKind:  rec.ErrorKind,
		Iterations: rec.Iterations,
	})
}

func (e *Engine) emitNodeEnter(ctx context.Context, rec *domain.RunRecord, node string) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(rec, domain.EventNodeEnter),
		NodeID:    node,
		Iteration: rec.Iterations + 1,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, rec *domain.RunRecord, node, next string) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(rec, domain.EventNodeLeave),
		NodeID:    node,
		Iteration: rec.Iterations,
		Next:      next,
	})
}

func (e *Engine) emitToolReturn(ctx context.Context, rec *domain.RunRecord, node domain.NodeDefinition, d time.Duration, isError bool) {
	if e.hooks.OnToolReturn == nil {
		return
	}
	e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase: e.base(rec, domain.EventToolReturn),
		NodeID:    node.Name,
		ToolName:  node.Tool,
		Duration:  d,
		IsError:   isError,
	})
}
