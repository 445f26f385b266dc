package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var timeZero = time.Time{}

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ErrorKindNone},
		{fmt.Errorf("node x: %w", ErrToolNotRegistered), ErrorKindToolNotRegistered},
		{&ToolExecutionError{Node: "n", Tool: "t", Cause: cause}, ErrorKindToolExecution},
		{&RoutingError{From: "a", To: "b"}, ErrorKindRouting},
		{&GraphInvalidError{GraphID: "g", Issues: []ValidationIssue{{Field: "start_node", Reason: "missing"}}}, ErrorKindGraphInvalid},
		{fmt.Errorf("%w: context canceled", ErrRunCancelled), ErrorKindCancelled},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestToolExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ToolExecutionError{Node: "n", Tool: "t", Cause: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `tool "t" failed at node "n"`)
}

func TestGraphInvalidError_Message(t *testing.T) {
	err := &GraphInvalidError{GraphID: "g", Issues: []ValidationIssue{
		{Field: "start_node", Reason: "missing"},
		{Node: "a", Field: "next_node", Reason: `unknown node "b"`},
	}}
	assert.ErrorIs(t, err, ErrGraphInvalid)
	assert.Contains(t, err.Error(), "2 issues")
	assert.Contains(t, err.Error(), `node "a" next_node`)
}
