/*
Package domain contains the core domain models of the stepgraph engine.

It defines the fundamental entities of graph execution, such as Graphs, Edges,
Conditions and Runs. This package is kept free of I/O and persistence concerns,
following Hexagonal Architecture principles.

# Key Entities

  - Graph: an immutable set of nodes (node id -> tool name) and ordered, optionally guarded edges.
  - Condition: a single comparison over one state key.
  - Run: one execution of a graph with its own State, Status and execution Log.
  - LogEntry: the state snapshot captured right before a node executed.
  - LifecycleHooks: callbacks fired while a run progresses.
*/
package domain
