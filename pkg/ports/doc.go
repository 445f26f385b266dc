/*
Package ports defines the driven ports (interfaces) of the stepgraph engine.

These interfaces decouple the facade from concrete storage backends, so the
same engine runs against process memory in tests and against Redis when
several replicas serve the HTTP API.

# Key Interfaces

  - GraphStore: persists validated graph definitions by id.
  - RunStore: persists run records (final state and execution log) by run id.
  - DistributedLocker: serializes review submissions for one session across replicas.

RunGraphStoreContract and RunRunStoreContract are reusable test suites that
every adapter runs against itself.
*/
package ports
