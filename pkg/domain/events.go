package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunFinish  EventType = "run_finish"
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	GraphID   string    `json:"graph_id"`
}

// RunEvent marks the start or the end of a run.
type RunEvent struct {
	EventBase
	Status RunStatus `json:"status"`
	Steps  int       `json:"steps"`
	Error  string    `json:"error,omitempty"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Step   int    `json:"step"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	ToolName string        `json:"tool_name"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the goroutine executing the run.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunFinish  func(context.Context, *RunEvent)
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}
