package domain

import "sort"

// NodeDefinition describes one step of a graph: the tool it invokes and how
// the run leaves it.
//
// A node carries exactly one routing shape:
//   - unconditional: Next is set (Condition, OnSuccess and OnFailure are empty)
//   - conditional: Condition is set, OnSuccess/OnFailure pick the successor
//   - terminal: none of the above
type NodeDefinition struct {
	Name string `json:"name" yaml:"name"`
	Tool string `json:"tool" yaml:"tool"`

	// Next is the unconditional successor.
	Next string `json:"next_node,omitempty" yaml:"next_node,omitempty"`

	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnSuccess string     `json:"next_on_success,omitempty" yaml:"next_on_success,omitempty"`
	OnFailure string     `json:"next_on_failure,omitempty" yaml:"next_on_failure,omitempty"`
}

// IsConditional reports whether the node routes through a condition.
func (n NodeDefinition) IsConditional() bool {
	return n.Condition != nil
}

// IsTerminal reports whether the node has no routing at all.
func (n NodeDefinition) IsTerminal() bool {
	return n.Next == Terminal && n.Condition == nil && n.OnSuccess == Terminal && n.OnFailure == Terminal
}

// Successors returns every non-terminal node name this node may route to.
func (n NodeDefinition) Successors() []string {
	var out []string
	for _, s := range []string{n.Next, n.OnSuccess, n.OnFailure} {
		if s != Terminal {
			out = append(out, s)
		}
	}
	return out
}

// GraphDefinition is an immutable directed graph of named nodes.
type GraphDefinition struct {
	ID        string                    `json:"id" yaml:"id"`
	StartNode string                    `json:"start_node" yaml:"start_node"`
	Nodes     map[string]NodeDefinition `json:"nodes" yaml:"nodes"`
}

// Node looks up a node by name.
func (g *GraphDefinition) Node(name string) (NodeDefinition, bool) {
	n, ok := g.Nodes[name]
	return n, ok
}

// NodeNames returns the node names in deterministic order.
func (g *GraphDefinition) NodeNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy that shares nothing mutable with g.
func (g *GraphDefinition) Clone() *GraphDefinition {
	if g == nil {
		return nil
	}
	out := &GraphDefinition{
		ID:        g.ID,
		StartNode: g.StartNode,
		Nodes:     make(map[string]NodeDefinition, len(g.Nodes)),
	}
	for name, n := range g.Nodes {
		if n.Condition != nil {
			c := *n.Condition
			c.Value = CloneValue(c.Value)
			n.Condition = &c
		}
		out.Nodes[name] = n
	}
	return out
}
