/*
Package domain contains the core domain models of the stepgraph engine.

It defines the graph a run walks (GraphDefinition, NodeDefinition, Condition),
the shared state tools transform (State), and the audit artifact a run
produces (RunRecord, LogEntry). This package is kept pure and free of I/O,
storage and transport concerns.

# Key Entities

  - GraphDefinition: an immutable set of nodes plus a designated start node.
  - NodeDefinition: a named step bound to one tool and one routing rule.
  - Condition: a closed comparison (six operators) between a state key and a value.
  - State: the key/value map flowing from tool to tool.
  - RunRecord: final state, status and the ordered per-node log of one run.
*/
package domain
