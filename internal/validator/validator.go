package validator

import (
	"fmt"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// ValidateGraph checks a graph for structural problems before it is ever run.
// Every issue found is reported in a single *domain.GraphInvalidError.
// If tools is nil, tool names are not resolved.
func ValidateGraph(g *domain.GraphDefinition, tools registry.Resolver) error {
	if g == nil {
		return &domain.GraphInvalidError{Issues: []domain.ValidationIssue{{Field: "graph", Reason: "is nil"}}}
	}

	var issues []domain.ValidationIssue
	add := func(node, field, format string, args ...any) {
		issues = append(issues, domain.ValidationIssue{Node: node, Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if g.ID == "" {
		add("", "id", "is empty")
	}
	if len(g.Nodes) == 0 {
		add("", "nodes", "graph has no nodes")
	}
	if g.StartNode == "" {
		add("", "start_node", "is empty")
	} else if _, ok := g.Nodes[g.StartNode]; !ok {
		add("", "start_node", "unknown node %q", g.StartNode)
	}

	for _, name := range g.NodeNames() {
		node := g.Nodes[name]

		if node.Name != name {
			add(name, "name", "%q does not match its key", node.Name)
		}

		if node.Tool == "" {
			add(name, "tool", "is empty")
		} else if tools != nil {
			if _, err := tools.Resolve(node.Tool); err != nil {
				add(name, "tool", "%q is not registered", node.Tool)
			}
		}

		hasBranch := node.OnSuccess != domain.Terminal || node.OnFailure != domain.Terminal
		switch {
		case node.Next != domain.Terminal && (node.Condition != nil || hasBranch):
			add(name, "routing", "has both an unconditional successor and a condition")
		case node.Condition == nil && hasBranch:
			add(name, "routing", "next_on_success/next_on_failure set without a condition")
		}

		if c := node.Condition; c != nil {
			if c.Key == "" {
				add(name, "condition_key", "is empty")
			}
			if !c.Op.Valid() {
				add(name, "condition_op", "unknown operator %q", c.Op)
			}
		}

		checkTarget := func(field, target string) {
			if target == domain.Terminal {
				return
			}
			if _, ok := g.Nodes[target]; !ok {
				add(name, field, "unknown node %q", target)
			}
		}
		checkTarget("next_node", node.Next)
		checkTarget("next_on_success", node.OnSuccess)
		checkTarget("next_on_failure", node.OnFailure)
	}

	if len(issues) > 0 {
		return &domain.GraphInvalidError{GraphID: g.ID, Issues: issues}
	}
	return nil
}

// Unreachable returns the nodes that no routing path from the start node visits.
// Unreachable nodes are legal; callers may surface them as warnings.
func Unreachable(g *domain.GraphDefinition) []string {
	visited := make(map[string]bool)
	queue := []string{g.StartNode}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		node, ok := g.Nodes[current]
		if !ok {
			continue
		}
		visited[current] = true

		for _, next := range node.Successors() {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	var out []string
	for _, name := range g.NodeNames() {
		if !visited[name] {
			out = append(out, name)
		}
	}
	return out
}
