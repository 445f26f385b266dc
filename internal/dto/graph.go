package dto

import (
	"fmt"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// NodeDocument is the wire shape of a node: routing and condition fields sit
// flat on the node, the way graph files and the HTTP API spell them.
type NodeDocument struct {
	Name           string `json:"name" yaml:"name" mapstructure:"name"`
	Tool           string `json:"tool" yaml:"tool" mapstructure:"tool"`
	NextNode       string `json:"next_node,omitempty" yaml:"next_node,omitempty" mapstructure:"next_node"`
	ConditionKey   string `json:"condition_key,omitempty" yaml:"condition_key,omitempty" mapstructure:"condition_key"`
	ConditionOp    string `json:"condition_op,omitempty" yaml:"condition_op,omitempty" mapstructure:"condition_op"`
	ConditionValue any    `json:"condition_value,omitempty" yaml:"condition_value,omitempty" mapstructure:"condition_value"`
	NextOnSuccess  string `json:"next_on_success,omitempty" yaml:"next_on_success,omitempty" mapstructure:"next_on_success"`
	NextOnFailure  string `json:"next_on_failure,omitempty" yaml:"next_on_failure,omitempty" mapstructure:"next_on_failure"`
}

// GraphDocument is the wire shape of a graph definition.
type GraphDocument struct {
	ID        string                  `json:"id" yaml:"id" mapstructure:"id"`
	StartNode string                  `json:"start_node" yaml:"start_node" mapstructure:"start_node"`
	Nodes     map[string]NodeDocument `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// DecodeGraph converts a generic document (parsed from JSON or YAML) into a
// graph definition. Unknown fields are rejected so that typos surface early.
// A node without a name takes its key. Operators are normalised; unknown
// ones are kept verbatim for the validator to report.
func DecodeGraph(raw map[string]any) (*domain.GraphDefinition, error) {
	var doc GraphDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGraphInvalid, err)
	}
	return doc.ToDomain(), nil
}

// ToDomain converts the document into a domain graph.
func (d GraphDocument) ToDomain() *domain.GraphDefinition {
	g := &domain.GraphDefinition{
		ID:        d.ID,
		StartNode: d.StartNode,
		Nodes:     make(map[string]domain.NodeDefinition, len(d.Nodes)),
	}
	for key, n := range d.Nodes {
		name := n.Name
		if name == "" {
			name = key
		}
		node := domain.NodeDefinition{
			Name:      name,
			Tool:      n.Tool,
			Next:      n.NextNode,
			OnSuccess: n.NextOnSuccess,
			OnFailure: n.NextOnFailure,
		}
		if n.ConditionKey != "" || n.ConditionOp != "" || n.ConditionValue != nil {
			op, err := domain.ParseOperator(n.ConditionOp)
			if err != nil {
				op = domain.Operator(n.ConditionOp)
			}
			node.Condition = &domain.Condition{Key: n.ConditionKey, Op: op, Value: n.ConditionValue}
		}
		g.Nodes[key] = node
	}
	return g
}

// FromDomain converts a domain graph into its wire shape.
func FromDomain(g *domain.GraphDefinition) GraphDocument {
	doc := GraphDocument{
		ID:        g.ID,
		StartNode: g.StartNode,
		Nodes:     make(map[string]NodeDocument, len(g.Nodes)),
	}
	for key, n := range g.Nodes {
		nd := NodeDocument{
			Name:          n.Name,
			Tool:          n.Tool,
			NextNode:      n.Next,
			NextOnSuccess: n.OnSuccess,
			NextOnFailure: n.OnFailure,
		}
		if c := n.Condition; c != nil {
			nd.ConditionKey = c.Key
			nd.ConditionOp = string(c.Op)
			nd.ConditionValue = c.Value
		}
		doc.Nodes[key] = nd
	}
	return doc
}
