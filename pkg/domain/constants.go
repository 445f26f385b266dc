package domain

// Terminal is the routing marker meaning "no next node".
// An empty successor name always means the run completes after the node.
const Terminal = ""

// DefaultMaxIterations is the safety bound applied when none is configured.
// A run executes at most this many nodes before it is forced to complete.
const DefaultMaxIterations = 10
