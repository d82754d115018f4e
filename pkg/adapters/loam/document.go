package loam

import "github.com/aretw0/stepgraph/pkg/domain"

// GraphDocument is the metadata of a catalog file describing one graph.
// It uses "mapstructure" tags to match Frontmatter/YAML/JSON keys.
type GraphDocument struct {
	Name        string            `json:"name" mapstructure:"name"`
	Description string            `json:"description" mapstructure:"description"`
	StartNodeID string            `json:"start_node_id" mapstructure:"start_node_id"`
	Nodes       []domain.NodeSpec `json:"nodes" mapstructure:"nodes"`
	Edges       []domain.Edge     `json:"edges" mapstructure:"edges"`
}

// Definition returns the graph definition carried by the document.
func (d GraphDocument) Definition() domain.GraphDefinition {
	return domain.GraphDefinition{
		Nodes:       d.Nodes,
		Edges:       d.Edges,
		StartNodeID: d.StartNodeID,
	}
}

// Entry is a named graph definition read from the catalog.
type Entry struct {
	Name        string
	Description string
	Definition  domain.GraphDefinition
}
