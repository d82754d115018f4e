/*
Package ports defines the driven ports (interfaces) for the stepgraph engine.

These interfaces decouple the executor from storage technology, so graphs and runs can
live in memory, Redis or Badger without touching traversal logic.

# Key Interfaces

  - GraphStore: keyed storage of immutable graph definitions.
  - RunStore: keyed storage of run records (status, state, log).

The contract suites RunGraphStoreContract and RunRunStoreContract are exported so every
adapter can prove it honours the same semantics.
*/
package ports
