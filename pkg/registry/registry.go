package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// ToolFunction defines the signature for a tool implementation.
// It receives the run's state and returns the state to adopt. Returning the same
// (mutated) map is allowed.
type ToolFunction func(ctx context.Context, state domain.State) (domain.State, error)

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolFunction
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolFunction),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Resolve looks up a tool by name.
// Returns domain.ErrToolNotFound if nothing is registered under name.
func (r *Registry) Resolve(name string) (ToolFunction, error) {
	r.mu.RLock()
	fn, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok || fn == nil {
		return nil, fmt.Errorf("tool '%s': %w", name, domain.ErrToolNotFound)
	}
	return fn, nil
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Execute looks up a tool by name and executes it.
func (r *Registry) Execute(ctx context.Context, name string, state domain.State) (domain.State, error) {
	fn, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, state)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
