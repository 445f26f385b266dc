package dsl

import (
	"github.com/aretw0/stepgraph/internal/validator"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// End is the routing target that finishes a run.
const End = domain.Terminal

// Builder manages the graph construction.
type Builder struct {
	id    string
	start string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a builder for the graph id.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Start sets the start node. By default it is the first node added.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{node: domain.NodeDefinition{Name: name}}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Build assembles the graph and checks its structure. Tool names are not
// resolved here; see stepgraph.Engine.Validate for that.
func (b *Builder) Build() (*domain.GraphDefinition, error) {
	start := b.start
	if start == "" && len(b.order) > 0 {
		start = b.order[0]
	}

	g := &domain.GraphDefinition{
		ID:        b.id,
		StartNode: start,
		Nodes:     make(map[string]domain.NodeDefinition, len(b.nodes)),
	}
	for name, nb := range b.nodes {
		g.Nodes[name] = nb.Build()
	}

	if err := validator.ValidateGraph(g, nil); err != nil {
		return nil, err
	}
	return g, nil
}

// MustBuild is like Build but panics on error. It is meant for graphs
// declared in code, where a structural mistake is a programming error.
func (b *Builder) MustBuild() *domain.GraphDefinition {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
