package stepgraph_test

import (
	"context"
	"fmt"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

func Example() {
	ctx := context.Background()
	eng := stepgraph.New()

	eng.Registry().MustRegister("double", registry.ToolFunc(func(_ context.Context, s domain.State) (domain.State, error) {
		s["value"] = s["value"].(int) * 2
		return s, nil
	}))

	err := eng.CreateGraph(ctx, &domain.GraphDefinition{
		ID:        "doubler",
		StartNode: "double",
		Nodes: map[string]domain.NodeDefinition{
			"double": {
				Name:      "double",
				Tool:      "double",
				Condition: &domain.Condition{Key: "value", Op: domain.OpLessThan, Value: 100},
				OnSuccess: "double",
				OnFailure: domain.Terminal,
			},
		},
	})
	if err != nil {
		panic(err)
	}

	rec, err := eng.Run(ctx, "doubler", domain.State{"value": 3})
	if err != nil {
		panic(err)
	}
	fmt.Println(rec.Status, rec.Iterations, rec.FinalState["value"])
	// Output: completed 6 192
}
