package domain

import (
	"github.com/mohae/deepcopy"
)

// State is the key-value data threaded through a run and transformed by each tool.
type State map[string]any

// Copy returns a shallow copy: a new map holding the same values.
func (s State) Copy() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Clone returns a deep, independent copy of the state.
// Nested maps and slices are copied so later mutation of s never shows through.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	cp, ok := deepcopy.Copy(map[string]any(s)).(map[string]any)
	if !ok || cp == nil {
		return State{}
	}
	return State(cp)
}

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition can happen from this status.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// LogEntry records the state as it was immediately before a node executed.
type LogEntry struct {
	NodeID        string `json:"node_id"`
	StateSnapshot State  `json:"state_snapshot"`
}

// Run is one execution of a graph.
type Run struct {
	ID        string     `json:"run_id"`
	GraphID   string     `json:"graph_id"`
	Status    RunStatus  `json:"status"`
	State     State      `json:"state"`
	Log       []LogEntry `json:"log"`
	LastError string     `json:"last_error,omitempty"`
}

// NewRun creates a running record owning a shallow copy of the initial state.
func NewRun(id, graphID string, initial State) *Run {
	return &Run{
		ID:      id,
		GraphID: graphID,
		Status:  RunRunning,
		State:   initial.Copy(),
		Log:     []LogEntry{},
	}
}

// Visited returns the node ids in the order the run entered them.
func (r *Run) Visited() []string {
	ids := make([]string, len(r.Log))
	for i, entry := range r.Log {
		ids[i] = entry.NodeID
	}
	return ids
}

// Snapshot returns a copy of the run with its own State and Log slice.
// Log entry snapshots are immutable once recorded and are shared, not copied,
// so taking a snapshot after every step stays linear in the run length.
func (r *Run) Snapshot() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.State = r.State.Clone()
	out.Log = make([]LogEntry, len(r.Log))
	copy(out.Log, r.Log)
	return &out
}

// Clone returns a fully independent deep copy of the run, log snapshots included.
// Use it when handing a record to code that may modify it.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := r.Snapshot()
	for i, entry := range out.Log {
		out.Log[i].StateSnapshot = entry.StateSnapshot.Clone()
	}
	return out
}
