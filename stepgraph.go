package stepgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// Engine is the high-level entry point for the stepgraph library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	graphs      ports.GraphStore
	runs        ports.RunStore
	tools       *registry.Registry
	evaluator   runtime.ConditionEvaluator
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	maxSteps    int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRegistry uses the given tool registry instead of an empty one.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.tools = reg
	}
}

// WithGraphStore injects a graph store. Defaults to memory.NewGraphStore.
func WithGraphStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.graphs = store
	}
}

// WithRunStore injects a run store. Defaults to memory.NewRunStore.
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.runs = store
	}
}

// WithConditionEvaluator sets a custom edge condition evaluator.
func WithConditionEvaluator(eval runtime.ConditionEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = eval
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps fails a run once it has entered n nodes. Zero (the default) means no limit,
// so a cycle whose condition never turns false runs forever.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithIDGenerator replaces the UUID generator used for graph and run IDs.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithIDGenerator(fn))
	}
}

// New initializes a new Engine.
// Without options it keeps graphs and runs in memory and starts with an empty registry.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.graphs == nil {
		eng.graphs = memory.NewGraphStore()
	}
	if eng.runs == nil {
		eng.runs = memory.NewRunStore()
	}
	if eng.tools == nil {
		eng.tools = registry.NewRegistry()
	}
	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithMaxSteps(eng.maxSteps),
		runtime.WithConditionEvaluator(eng.evaluator),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(eng.graphs, eng.runs, eng.tools, runtimeOpts...)
	return eng
}

// Registry returns the tool registry used by the engine.
func (e *Engine) Registry() *registry.Registry {
	return e.tools
}

// CreateGraph validates only the shape of def, stores it and returns the new graph ID.
func (e *Engine) CreateGraph(ctx context.Context, def domain.GraphDefinition) (string, error) {
	return e.runtime.CreateGraph(ctx, def)
}

// RunGraph executes the graph synchronously and returns the run ID.
//
// It fails only when the graph is unknown (domain.ErrGraphNotFound) or the run could not
// be stored (domain.ErrStore). Tool faults are recorded on the run: inspect them with GetRun.
func (e *Engine) RunGraph(ctx context.Context, graphID string, initial domain.State) (string, error) {
	run, err := e.runtime.Run(ctx, graphID, initial)
	if run == nil {
		return "", err
	}
	return run.ID, err
}

// Execute is RunGraph returning the whole final record instead of its ID.
func (e *Engine) Execute(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error) {
	return e.runtime.Run(ctx, graphID, initial)
}

// GetRun returns the latest record of a run, in progress or finished.
func (e *Engine) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := e.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run '%s': %w", runID, err)
	}
	return run, nil
}

// GetGraph returns a stored graph.
func (e *Engine) GetGraph(ctx context.Context, graphID string) (*domain.Graph, error) {
	graph, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("graph '%s': %w", graphID, err)
	}
	return graph, nil
}

// ListGraphs returns the IDs of stored graphs.
func (e *Engine) ListGraphs(ctx context.Context) ([]string, error) {
	return e.graphs.List(ctx)
}

// ListRuns returns the IDs of stored runs.
func (e *Engine) ListRuns(ctx context.Context) ([]string, error) {
	return e.runs.List(ctx)
}
