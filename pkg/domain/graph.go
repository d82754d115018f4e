package domain

import (
	"fmt"
	"sort"
)

// Operator names a comparison used by a Condition.
type Operator string

const (
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"

	OpLengthLessThan     Operator = "length_lt"
	OpLengthLessEqual    Operator = "length_lte"
	OpLengthGreaterThan  Operator = "length_gt"
	OpLengthGreaterEqual Operator = "length_gte"
)

// Operators lists every supported operator in a stable order.
var Operators = []Operator{
	OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual, OpEqual, OpNotEqual,
	OpLengthLessThan, OpLengthLessEqual, OpLengthGreaterThan, OpLengthGreaterEqual,
}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// ParseOperator converts s into an Operator, rejecting unknown names.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", fmt.Errorf("unknown operator %q", s)
	}
	return op, nil
}

// IsLength reports whether op compares the length of the value rather than the value itself.
func (op Operator) IsLength() bool {
	switch op {
	case OpLengthLessThan, OpLengthLessEqual, OpLengthGreaterThan, OpLengthGreaterEqual:
		return true
	}
	return false
}

// Condition is a single comparison over one state key.
type Condition struct {
	Key   string   `json:"key" yaml:"key" mapstructure:"key"`
	Op    Operator `json:"op" yaml:"op" mapstructure:"op"`
	Value any      `json:"value" yaml:"value" mapstructure:"value"`
}

// Edge connects two nodes. A nil Condition means the edge is always eligible.
type Edge struct {
	Source    string     `json:"source" yaml:"source" mapstructure:"source"`
	Target    string     `json:"target" yaml:"target" mapstructure:"target"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
}

// Graph is a stored, immutable graph definition.
type Graph struct {
	ID          string `json:"graph_id"`
	StartNodeID string `json:"start_node_id"`

	// Nodes maps node id to tool name.
	Nodes map[string]string `json:"nodes"`

	// Edges maps a source node id to its outgoing edges, in priority order.
	Edges map[string][]Edge `json:"edges"`
}

// NodeIDs returns the graph's node ids in sorted order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a copy of the graph that shares no maps or slices with g.
// Condition values are scalars and are shared.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{
		ID:          g.ID,
		StartNodeID: g.StartNodeID,
		Nodes:       make(map[string]string, len(g.Nodes)),
		Edges:       make(map[string][]Edge, len(g.Edges)),
	}
	for id, tool := range g.Nodes {
		out.Nodes[id] = tool
	}
	for src, edges := range g.Edges {
		cp := make([]Edge, len(edges))
		for i, e := range edges {
			cp[i] = e
			if e.Condition != nil {
				c := *e.Condition
				cp[i].Condition = &c
			}
		}
		out.Edges[src] = cp
	}
	return out
}

// NodeSpec declares a node in a GraphDefinition.
type NodeSpec struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	ToolName string `json:"tool_name" yaml:"tool_name" mapstructure:"tool_name"`
}

// GraphDefinition is the input used to create a Graph.
type GraphDefinition struct {
	Nodes       []NodeSpec `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges       []Edge     `json:"edges" yaml:"edges" mapstructure:"edges"`
	StartNodeID string     `json:"start_node_id" yaml:"start_node_id" mapstructure:"start_node_id"`
}

// Compile converts the definition into a Graph with the given id.
// No references are checked; duplicate node ids keep the last tool name.
func (d GraphDefinition) Compile(id string) *Graph {
	g := &Graph{
		ID:          id,
		StartNodeID: d.StartNodeID,
		Nodes:       make(map[string]string, len(d.Nodes)),
		Edges:       make(map[string][]Edge),
	}
	for _, n := range d.Nodes {
		g.Nodes[n.ID] = n.ToolName
	}
	for _, e := range d.Edges {
		if e.Condition != nil {
			c := *e.Condition
			e.Condition = &c
		}
		g.Edges[e.Source] = append(g.Edges[e.Source], e)
	}
	return g
}

// Definition converts a Graph back into its creation input.
// Nodes come out sorted by id; edges are grouped by sorted source, keeping their priority order.
func (g *Graph) Definition() GraphDefinition {
	def := GraphDefinition{StartNodeID: g.StartNodeID}
	for _, id := range g.NodeIDs() {
		def.Nodes = append(def.Nodes, NodeSpec{ID: id, ToolName: g.Nodes[id]})
	}
	sources := make([]string, 0, len(g.Edges))
	for src := range g.Edges {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		def.Edges = append(def.Edges, g.Edges[src]...)
	}
	return def
}
