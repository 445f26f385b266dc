package dsl

import "github.com/aretw0/stepgraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.NodeDefinition
}

// Do sets the tool the node executes.
func (n *NodeBuilder) Do(tool string) *NodeBuilder {
	n.node.Tool = tool
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Next = target
	return n
}

// When makes the node conditional. The operator accepts the same spellings
// as graph files ("<", "lt", ">=", ...); an unknown one is kept as written
// and reported by Build.
func (n *NodeBuilder) When(key, op string, value any) *NodeBuilder {
	parsed, err := domain.ParseOperator(op)
	if err != nil {
		parsed = domain.Operator(op)
	}
	n.node.Condition = &domain.Condition{Key: key, Op: parsed, Value: value}
	return n
}

// Then sets the target taken when the condition holds.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.node.OnSuccess = target
	return n
}

// Else sets the target taken when the condition does not hold or cannot be
// evaluated.
func (n *NodeBuilder) Else(target string) *NodeBuilder {
	n.node.OnFailure = target
	return n
}

// Terminal clears every transition so that the node ends the run.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Next = domain.Terminal
	n.node.Condition = nil
	n.node.OnSuccess = domain.Terminal
	n.node.OnFailure = domain.Terminal
	return n
}

// Build returns the underlying node definition.
func (n *NodeBuilder) Build() domain.NodeDefinition {
	return n.node
}
