/*
Package stepgraph runs directed graphs of named processing steps ("tools") against a
shared, mutable state, choosing the next step by comparing values in that state.

# Concept

A graph maps node IDs to tool names and lists outgoing edges per node, in priority
order. An edge may carry a condition such as {key: "summary", op: "length_gt", value: 400}.
Running a graph walks it from the start node: before each node the engine records a
deep snapshot of the state in the run log, calls the node's tool, adopts the state it
returns and follows the first edge whose condition is absent or holds. The run completes
when no edge qualifies.

A tool that fails, panics or is not registered ends the run with status failed. The state
and log are kept as they were at that point, and the error message is stored on the run.

# Usage

	reg := registry.NewRegistry()
	summarize.Register(reg)

	eng := stepgraph.New(stepgraph.WithRegistry(reg))

	graphID, _ := eng.CreateGraph(ctx, summarize.SampleGraph())
	runID, err := eng.RunGraph(ctx, graphID, domain.State{"text": text})
	if err != nil {
		log.Fatal(err) // unknown graph or storage failure
	}

	run, _ := eng.GetRun(ctx, runID)
	fmt.Println(run.Status, run.State["summary"])

Graphs and runs live in memory by default. Redis and Badger stores are available in
pkg/adapters, and cmd/stepgraph exposes the engine over HTTP, MCP and the command line.
*/
package stepgraph
