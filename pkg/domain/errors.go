package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphNotFound is returned when a graph id cannot be found in the store.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrRunNotFound is returned when a run id cannot be found in the store.
	ErrRunNotFound = errors.New("run not found")

	// ErrGraphInvalid marks structural problems caught at validation time.
	ErrGraphInvalid = errors.New("graph invalid")

	// ErrToolNotRegistered is returned when a tool name does not resolve.
	ErrToolNotRegistered = errors.New("tool not registered")

	// ErrToolAlreadyRegistered is returned when registering a taken name without replace.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrSessionNotFound is returned when a session id cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRunCancelled is returned when the run context is done at a step boundary.
	ErrRunCancelled = errors.New("run cancelled")
)

// ErrorKind classifies why a run ended in StatusFailed.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindGraphInvalid      ErrorKind = "graph_invalid"
	ErrorKindToolNotRegistered ErrorKind = "tool_not_registered"
	ErrorKindToolExecution     ErrorKind = "tool_execution_error"
	ErrorKindRouting           ErrorKind = "routing_error"
	ErrorKindCancelled         ErrorKind = "cancelled"
)

// ValidationIssue is a single structural problem in a graph.
type ValidationIssue struct {
	Node   string `json:"node,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (i ValidationIssue) String() string {
	if i.Node == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Reason)
	}
	return fmt.Sprintf("node %q %s: %s", i.Node, i.Field, i.Reason)
}

// GraphInvalidError aggregates every issue found while validating a graph.
type GraphInvalidError struct {
	GraphID string
	Issues  []ValidationIssue
}

func (e *GraphInvalidError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("graph %q invalid: %s", e.GraphID, e.Issues[0])
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "graph %q invalid: %d issues:\n", e.GraphID, len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, issue)
	}
	return sb.String()
}

func (e *GraphInvalidError) Unwrap() error { return ErrGraphInvalid }

// ToolExecutionError wraps the failure of a tool call.
type ToolExecutionError struct {
	Node  string
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed at node %q: %v", e.Tool, e.Node, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// RoutingError is returned when a run reaches a node name the graph does not define.
type RoutingError struct {
	From string
	To   string
}

func (e *RoutingError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("start node %q does not exist", e.To)
	}
	return fmt.Sprintf("node %q routes to unknown node %q", e.From, e.To)
}

// ConditionEvaluationError reports a branch decision that could not be made.
// It is routed to the failure successor, never returned from a run.
type ConditionEvaluationError struct {
	Key    string
	Op     Operator
	Reason string
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("condition on %q (%s): %s", e.Key, e.Op, e.Reason)
}

// KindOf maps a run error to its ErrorKind.
func KindOf(err error) ErrorKind {
	var toolErr *ToolExecutionError
	var routeErr *RoutingError
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrRunCancelled):
		return ErrorKindCancelled
	case errors.Is(err, ErrGraphInvalid):
		return ErrorKindGraphInvalid
	case errors.As(err, &toolErr):
		return ErrorKindToolExecution
	case errors.Is(err, ErrToolNotRegistered):
		return ErrorKindToolNotRegistered
	case errors.As(err, &routeErr):
		return ErrorKindRouting
	}
	return ErrorKindToolExecution
}
