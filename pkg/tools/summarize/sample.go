package summarize

import "github.com/aretw0/stepgraph/pkg/domain"

// SampleGraph returns the linear pipeline split -> summarize_chunks -> merge -> refine.
func SampleGraph() domain.GraphDefinition {
	return domain.GraphDefinition{
		StartNodeID: "split",
		Nodes: []domain.NodeSpec{
			{ID: "split", ToolName: SplitText},
			{ID: "summarize_chunks", ToolName: GenerateSummaries},
			{ID: "merge", ToolName: MergeSummaries},
			{ID: "refine", ToolName: RefineSummary},
		},
		Edges: []domain.Edge{
			{Source: "split", Target: "summarize_chunks"},
			{Source: "summarize_chunks", Target: "merge"},
			{Source: "merge", Target: "refine"},
		},
	}
}
