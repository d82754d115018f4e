package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Severity grades a lint finding.
type Severity string

const (
	// SeverityError marks a definition that will fail when the affected path runs.
	SeverityError Severity = "error"
	// SeverityWarning marks a suspicious but runnable definition.
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// ToolSet reports whether a tool name is registered.
type ToolSet interface {
	Has(name string) bool
}

// Report collects the issues of one definition.
type Report []Issue

// HasErrors reports whether any issue is an error.
func (r Report) HasErrors() bool {
	for _, i := range r {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r Report) String() string {
	lines := make([]string, len(r))
	for i, issue := range r {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// Lint checks def for broken references, unknown operators and unreachable nodes.
// A nil tools skips the registration check. The engine itself enforces none of this.
func Lint(def domain.GraphDefinition, tools ToolSet) Report {
	var r Report
	add := func(s Severity, format string, args ...any) {
		r = append(r, Issue{Severity: s, Message: fmt.Sprintf(format, args...)})
	}

	if len(def.Nodes) == 0 {
		add(SeverityError, "graph has no nodes")
	}

	nodes := make(map[string]string, len(def.Nodes))
	for _, n := range def.Nodes {
		if n.ID == "" {
			add(SeverityError, "node with empty id")
			continue
		}
		if _, dup := nodes[n.ID]; dup {
			add(SeverityWarning, "node '%s' declared more than once; the last tool wins", n.ID)
		}
		nodes[n.ID] = n.ToolName
		if n.ToolName == "" {
			add(SeverityError, "node '%s' has no tool", n.ID)
		} else if tools != nil && !tools.Has(n.ToolName) {
			add(SeverityError, "node '%s': tool '%s' is not registered", n.ID, n.ToolName)
		}
	}

	switch {
	case def.StartNodeID == "":
		add(SeverityError, "start_node_id is empty")
	case !hasNode(nodes, def.StartNodeID):
		add(SeverityError, "start node '%s' is not declared", def.StartNodeID)
	}

	out := make(map[string][]string)
	for i, e := range def.Edges {
		if !hasNode(nodes, e.Source) {
			add(SeverityWarning, "edge %d (%s -> %s): source is not declared and will never be used", i, e.Source, e.Target)
		}
		if !hasNode(nodes, e.Target) {
			add(SeverityError, "edge %d (%s -> %s): target is not declared", i, e.Source, e.Target)
		}
		if c := e.Condition; c != nil {
			if !c.Op.Valid() {
				add(SeverityError, "edge %d (%s -> %s): unknown operator %q", i, e.Source, e.Target, c.Op)
			}
			if c.Key == "" {
				add(SeverityWarning, "edge %d (%s -> %s): condition has an empty key", i, e.Source, e.Target)
			}
		}
		out[e.Source] = append(out[e.Source], e.Target)
	}

	if hasNode(nodes, def.StartNodeID) {
		seen := reachable(def.StartNodeID, out)
		for _, n := range def.Nodes {
			if n.ID != "" && !seen[n.ID] {
				add(SeverityWarning, "node '%s' is unreachable from '%s'", n.ID, def.StartNodeID)
				seen[n.ID] = true
			}
		}
	}

	return r
}

func hasNode(nodes map[string]string, id string) bool {
	_, ok := nodes[id]
	return ok
}

// reachable walks edges breadth-first from start.
func reachable(start string, out map[string][]string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range out[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
