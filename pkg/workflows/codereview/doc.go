// Package codereview is a sample workflow that reviews Go source code.
//
// Four tools share the state keys declared in this package: the submission
// lives under "code", and each tool adds its findings (functions, complexity,
// issues, suggestions, quality_score, iteration). DefaultGraph wires them into
// a linear pipeline whose last step branches on quality_score.
package codereview
