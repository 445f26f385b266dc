/*
Package dsl provides a fluent builder for graph definitions.

It lets Go code declare a workflow graph without writing a JSON or YAML
document, which suits graphs generated at runtime, unit tests and built-in
workflows. Build checks the graph structure; tool names are resolved later,
when the graph is handed to an engine.

Example usage:

	b := dsl.New("review")

	b.Add("extract").
		Do("extract_functions").
		Go("score")

	b.Add("score").
		Do("check_complexity").
		When("quality_score", ">=", 0.8).
		Then(dsl.End).
		Else("extract")

	graph, err := b.Build()
*/
package dsl
