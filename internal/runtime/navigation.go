package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// step executes a single node and returns the ID of the next node, or "" when the
// traversal is over.
func (e *Engine) step(ctx context.Context, graph *domain.Graph, run *domain.Run, nodeID string) (string, error) {
	toolName, ok := graph.Nodes[nodeID]
	if !ok {
		return "", fmt.Errorf("node '%s': %w", nodeID, domain.ErrNodeNotFound)
	}

	tool, err := e.tools.Resolve(toolName)
	if err != nil {
		return "", fmt.Errorf("node '%s': %w", nodeID, err)
	}

	out, err := e.invoke(ctx, run, nodeID, toolName, tool)
	if err != nil {
		return "", &domain.ToolError{NodeID: nodeID, ToolName: toolName, Cause: err}
	}
	// A tool may mutate the state in place and return nothing.
	if out != nil {
		run.State = out
	}

	return e.next(graph, nodeID, run.State), nil
}

// invoke calls the tool, turning a panic into an error.
func (e *Engine) invoke(ctx context.Context, run *domain.Run, nodeID, toolName string, tool registry.ToolFunction) (out domain.State, err error) {
	e.emitToolCall(ctx, run, nodeID, toolName)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
		e.emitToolReturn(ctx, run, nodeID, toolName, time.Since(started), err != nil)
	}()

	return tool(ctx, run.State)
}

// next picks the first outgoing edge, in definition order, that is unconditional or
// whose condition holds.
func (e *Engine) next(graph *domain.Graph, nodeID string, state domain.State) string {
	for _, edge := range graph.Edges[nodeID] {
		if edge.Condition == nil || e.evaluator(*edge.Condition, state) {
			return edge.Target
		}
	}
	return ""
}
