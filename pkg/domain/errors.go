package domain

import (
	"errors"
	"fmt"
)

// ErrGraphNotFound is returned when a graph ID cannot be found in the store.
var ErrGraphNotFound = errors.New("graph not found")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrToolNotFound is returned when a node references a tool that is not registered.
var ErrToolNotFound = errors.New("tool not registered")

// ErrNodeNotFound is returned when traversal reaches a node id the graph does not define.
var ErrNodeNotFound = errors.New("node not found")

// ErrStepBudgetExceeded is returned when a run enters more nodes than its configured budget.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

// ErrStore wraps failures of the underlying graph or run storage.
var ErrStore = errors.New("store failure")

// ToolError is a fault raised while resolving or invoking a node's tool.
type ToolError struct {
	NodeID   string
	ToolName string
	Cause    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("node '%s' (tool '%s') failed: %v", e.NodeID, e.ToolName, e.Cause)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}
