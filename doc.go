/*
Package stepgraph is a small workflow engine that executes directed graphs of
named tools over a shared key/value state.

A graph is a set of nodes. Each node invokes one registered tool and then
routes to its successor, either unconditionally or by comparing one state
key against a value. Cycles are allowed; every run is bounded by a maximum
number of executed nodes, and reaching that bound completes the run rather
than failing it. Each run produces a RunRecord holding the final state and a
log with an independent snapshot of the state after every node.

# Usage

	eng := stepgraph.New()
	eng.Registry().MustRegister("extract", registry.ToolFunc(extract))

	err := eng.CreateGraph(ctx, &domain.GraphDefinition{
		ID:        "review",
		StartNode: "extract",
		Nodes: map[string]domain.NodeDefinition{
			"extract": {Name: "extract", Tool: "extract"},
		},
	})

	rec, err := eng.Run(ctx, "review", domain.State{"code": src})

Graphs are validated once when created: unknown successors, unregistered
tools and ambiguous routing are rejected with a *domain.GraphInvalidError.

# Adapters

The engine is embedded by the adapters under pkg/adapters: an HTTP API (chi),
an MCP server, Redis and filesystem stores, and external process tools. The
stepgraph command wires them together.
*/
package stepgraph
