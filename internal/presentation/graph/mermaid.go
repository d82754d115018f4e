package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/stepgraph/pkg/condition"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	FailedNode   string
}

// OverlayFromRun marks the nodes a run entered. The last entered node is
// styled as current while the run is active and as failed when it failed.
func OverlayFromRun(run *domain.Run) *GraphOverlay {
	if run == nil {
		return nil
	}
	visited := run.Visited()
	o := &GraphOverlay{VisitedNodes: visited}
	if len(visited) == 0 {
		return o
	}
	last := visited[len(visited)-1]
	switch run.Status {
	case domain.RunFailed:
		o.FailedNode = last
	case domain.RunRunning, domain.RunPending:
		o.CurrentNode = last
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for g.
// The start node is drawn as a circle, other nodes as subroutines labelled
// with their tool. Conditional edges carry their condition as label and
// edges leaving the same node are numbered by priority when there is more than one.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range g.NodeIDs() {
		safeID := sanitizeMermaidID(id)
		opener, closer := "[[", "]]"
		if id == g.StartNodeID {
			opener, closer = "((", "))"
		}
		label := escapeLabel(id) + "<br/><i>" + escapeLabel(g.Nodes[id]) + "</i>"
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	sources := make([]string, 0, len(g.Edges))
	for src := range g.Edges {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	for _, src := range sources {
		edges := g.Edges[src]
		for i, e := range edges {
			var parts []string
			if len(edges) > 1 {
				parts = append(parts, fmt.Sprintf("%d.", i+1))
			}
			if e.Condition != nil {
				parts = append(parts, conditionLabel(*e.Condition))
			}
			arrow := "-->"
			if len(parts) > 0 {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(strings.Join(parts, " ")))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(src), arrow, sanitizeMermaidID(e.Target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func conditionLabel(c domain.Condition) string {
	v := condition.Of(c.Value)
	text := condition.Text(v)
	if v.Kind == condition.KindText {
		text = "'" + text + "'"
	}
	return fmt.Sprintf("%s %s %s", c.Key, c.Op, text)
}

// escapeLabel keeps a label inside Mermaid's double quotes.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
