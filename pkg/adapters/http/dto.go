package http

import "github.com/aretw0/stepgraph/pkg/domain"

// RunRequest is the body of POST /graph/run.
type RunRequest struct {
	GraphID      string       `json:"graph_id"`
	InitialState domain.State `json:"initial_state"`
}

// GraphCreated is returned when a graph is stored.
type GraphCreated struct {
	GraphID string `json:"graph_id"`
}

// RunResult is the outcome of a synchronous run.
type RunResult struct {
	RunID      string            `json:"run_id"`
	GraphID    string            `json:"graph_id"`
	Status     domain.RunStatus  `json:"status"`
	FinalState domain.State      `json:"final_state"`
	LastError  string            `json:"last_error,omitempty"`
	Log        []domain.LogEntry `json:"log"`
}

// RunState is the current view of a run.
type RunState struct {
	RunID         string           `json:"run_id"`
	GraphID       string           `json:"graph_id"`
	Status        domain.RunStatus `json:"status"`
	CurrentNodeID string           `json:"current_node_id,omitempty"`
	CurrentState  domain.State     `json:"current_state"`
	LastError     string           `json:"last_error,omitempty"`
}

// Graph is a stored graph in definition form.
type Graph struct {
	GraphID     string            `json:"graph_id"`
	StartNodeID string            `json:"start_node_id"`
	Nodes       []domain.NodeSpec `json:"nodes"`
	Edges       []domain.Edge     `json:"edges"`
}

// IDList wraps a list of identifiers.
type IDList struct {
	IDs []string `json:"ids"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

func runResultFromDomain(run *domain.Run) RunResult {
	return RunResult{
		RunID:      run.ID,
		GraphID:    run.GraphID,
		Status:     run.Status,
		FinalState: nonNil(run.State),
		LastError:  run.LastError,
		Log:        nonNilLog(run.Log),
	}
}

func runStateFromDomain(run *domain.Run) RunState {
	s := RunState{
		RunID:        run.ID,
		GraphID:      run.GraphID,
		Status:       run.Status,
		CurrentState: nonNil(run.State),
		LastError:    run.LastError,
	}
	if n := len(run.Log); n > 0 {
		s.CurrentNodeID = run.Log[n-1].NodeID
	}
	return s
}

func graphFromDomain(g *domain.Graph) Graph {
	def := g.Definition()
	out := Graph{
		GraphID:     g.ID,
		StartNodeID: def.StartNodeID,
		Nodes:       def.Nodes,
		Edges:       def.Edges,
	}
	if out.Nodes == nil {
		out.Nodes = []domain.NodeSpec{}
	}
	if out.Edges == nil {
		out.Edges = []domain.Edge{}
	}
	return out
}

func nonNil(s domain.State) domain.State {
	if s == nil {
		return domain.State{}
	}
	return s
}

func nonNilLog(l []domain.LogEntry) []domain.LogEntry {
	if l == nil {
		return []domain.LogEntry{}
	}
	return l
}
