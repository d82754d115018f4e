package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
	"gopkg.in/yaml.v3"
)

// loadState reads an initial state file (YAML or JSON) and applies key=value assignments.
// Assigned values are parsed as YAML scalars, so 300 is a number and true a bool.
func loadState(path string, assignments []string) (domain.State, error) {
	state := domain.State{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read state: %w", err)
		}
		if err := yaml.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("parse state %s: %w", path, err)
		}
		if state == nil {
			state = domain.State{}
		}
	}

	for _, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", a)
		}
		var v any = raw
		if raw != "" {
			if err := yaml.Unmarshal([]byte(raw), &v); err != nil || isCollection(v) {
				v = raw
			}
		}
		state[key] = v
	}
	return state, nil
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
