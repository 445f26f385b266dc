package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunEnd     EventType = "run_end"
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	GraphID   string    `json:"graph_id"`
}

// RunEvent marks the start or end of a run.
type RunEvent struct {
	EventBase
	Status     RunStatus `json:"status"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Iterations int       `json:"iterations"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	Iteration int    `json:"iteration"`
	// Next is the routing decision, set on leave only.
	Next string `json:"next,omitempty"`
}

// ToolEvent represents a finished tool invocation.
type ToolEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	ToolName string        `json:"tool_name"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// Combine returns hooks that call every set callback of each argument in order.
func Combine(all ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range all {
		h := h
		out.OnRunStart = chain(out.OnRunStart, h.OnRunStart)
		out.OnRunEnd = chain(out.OnRunEnd, h.OnRunEnd)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnToolReturn = chain(out.OnToolReturn, h.OnToolReturn)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
