package runtime

import "github.com/aretw0/stepgraph/pkg/domain"

// resolveNext picks the successor of node given the state it produced.
// A condition that cannot be evaluated routes to the failure successor; the
// evaluation error is returned for logging only.
func resolveNext(node domain.NodeDefinition, state domain.State) (string, error) {
	if node.Condition == nil {
		return node.Next, nil
	}

	ok, err := node.Condition.Evaluate(state)
	if err != nil {
		return node.OnFailure, err
	}
	if ok {
		return node.OnSuccess, nil
	}
	return node.OnFailure, nil
}
