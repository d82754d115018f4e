// Package compiler reads graph definition files and checks them for mistakes.
package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a graph definition.
// YAML and JSON files share the same layout.
type Document struct {
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	StartNodeID string            `mapstructure:"start_node_id"`
	Nodes       []domain.NodeSpec `mapstructure:"nodes"`
	Edges       []domain.Edge     `mapstructure:"edges"`
}

// Definition drops the descriptive fields.
func (d Document) Definition() domain.GraphDefinition {
	return domain.GraphDefinition{
		StartNodeID: d.StartNodeID,
		Nodes:       d.Nodes,
		Edges:       d.Edges,
	}
}

// ParseFile reads and parses the graph file at path.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read graph: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes YAML or JSON graph content. Unknown keys are rejected.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, errors.New("empty graph document")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("failed to parse graph: %w", err)
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return Document{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Document{}, fmt.Errorf("failed to decode graph: %w", err)
	}
	return doc, nil
}
