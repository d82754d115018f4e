package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Builder helps construct graph definitions fluently.
// Methods record the first error encountered; Build reports it.
type Builder struct {
	start string
	nodes []domain.NodeSpec
	index map[string]int
	edges []domain.Edge
	err   error
}

// New creates a new Builder.
func New() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Node declares a node bound to a tool. Redeclaring an id replaces its tool.
func (b *Builder) Node(id, tool string) *Builder {
	if id == "" {
		b.fail(errors.New("node id is required"))
		return b
	}
	if tool == "" {
		b.fail(fmt.Errorf("node '%s': tool name is required", id))
		return b
	}
	if i, ok := b.index[id]; ok {
		b.nodes[i].ToolName = tool
		return b
	}
	b.index[id] = len(b.nodes)
	b.nodes = append(b.nodes, domain.NodeSpec{ID: id, ToolName: tool})
	return b
}

// Start sets the entry node. Without it, the first declared node is used.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Then adds an unconditional edge. Edges are evaluated in the order they were added.
func (b *Builder) Then(source, target string) *Builder {
	b.edges = append(b.edges, domain.Edge{Source: source, Target: target})
	return b
}

// When adds an edge taken when state[key] op value holds.
func (b *Builder) When(source, target, key string, op domain.Operator, value any) *Builder {
	if !op.Valid() {
		b.fail(fmt.Errorf("edge %s -> %s: unknown operator %q", source, target, op))
		return b
	}
	b.edges = append(b.edges, domain.Edge{
		Source:    source,
		Target:    target,
		Condition: &domain.Condition{Key: key, Op: op, Value: value},
	})
	return b
}

// Build returns the definition, or the first error recorded while building.
// Every edge endpoint and the start node must be declared with Node.
func (b *Builder) Build() (domain.GraphDefinition, error) {
	if b.err != nil {
		return domain.GraphDefinition{}, b.err
	}
	if len(b.nodes) == 0 {
		return domain.GraphDefinition{}, errors.New("graph has no nodes")
	}

	start := b.start
	if start == "" {
		start = b.nodes[0].ID
	}
	if _, ok := b.index[start]; !ok {
		return domain.GraphDefinition{}, fmt.Errorf("start node '%s' is not declared", start)
	}
	for _, e := range b.edges {
		if _, ok := b.index[e.Source]; !ok {
			return domain.GraphDefinition{}, fmt.Errorf("edge %s -> %s: source is not declared", e.Source, e.Target)
		}
		if _, ok := b.index[e.Target]; !ok {
			return domain.GraphDefinition{}, fmt.Errorf("edge %s -> %s: target is not declared", e.Source, e.Target)
		}
	}

	def := domain.GraphDefinition{
		StartNodeID: start,
		Nodes:       make([]domain.NodeSpec, len(b.nodes)),
		Edges:       make([]domain.Edge, len(b.edges)),
	}
	copy(def.Nodes, b.nodes)
	for i, e := range b.edges {
		if e.Condition != nil {
			c := *e.Condition
			e.Condition = &c
		}
		def.Edges[i] = e
	}
	return def, nil
}

// MustBuild is like Build but panics on error. Intended for tests and static graphs.
func (b *Builder) MustBuild() domain.GraphDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
