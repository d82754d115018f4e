package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/stepgraph/pkg/condition"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/google/uuid"
)

// ToolResolver finds the implementation of a tool by name.
// *registry.Registry satisfies it.
type ToolResolver interface {
	Resolve(name string) (registry.ToolFunction, error)
}

// ConditionEvaluator decides whether an edge condition holds for a state.
type ConditionEvaluator func(cond domain.Condition, state domain.State) bool

// Engine is the core graph executor.
// It owns no state of its own: graphs and runs live in the stores.
type Engine struct {
	graphs    ports.GraphStore
	runs      ports.RunStore
	tools     ToolResolver
	evaluator ConditionEvaluator
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	maxSteps  int
	newID     func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps caps the number of nodes a run may enter. Zero means unlimited.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxSteps = n
		}
	}
}

// WithConditionEvaluator replaces condition.Evaluate.
func WithConditionEvaluator(fn ConditionEvaluator) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.evaluator = fn
		}
	}
}

// WithIDGenerator replaces the random UUID generator for graph and run IDs.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates a new engine with dependencies.
func NewEngine(graphs ports.GraphStore, runs ports.RunStore, tools ToolResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		graphs:    graphs,
		runs:      runs,
		tools:     tools,
		evaluator: condition.Evaluate,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateGraph stores the definition under a fresh ID.
// Tool names and edge targets are not checked; problems surface when a run reaches them.
func (e *Engine) CreateGraph(ctx context.Context, def domain.GraphDefinition) (string, error) {
	graph := def.Compile(e.newID())
	if err := e.graphs.Put(ctx, graph); err != nil {
		return "", fmt.Errorf("%w: save graph: %w", domain.ErrStore, err)
	}
	e.logger.Debug("graph created", "graph_id", graph.ID, "nodes", len(graph.Nodes))
	return graph.ID, nil
}

// Run executes the graph to completion within the calling goroutine and returns the
// final run record.
//
// The only errors returned are an unknown graph (domain.ErrGraphNotFound, no run is
// created) and storage failures (domain.ErrStore). Faults raised while executing nodes
// end the run with status failed and are reported through Run.LastError instead.
//
// ctx is handed to tools and stores, but cancellation does not abort the traversal:
// a started run always reaches a terminal status.
func (e *Engine) Run(ctx context.Context, graphID string, initial domain.State) (*domain.Run, error) {
	graph, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		if errors.Is(err, domain.ErrGraphNotFound) {
			return nil, fmt.Errorf("graph '%s': %w", graphID, domain.ErrGraphNotFound)
		}
		return nil, fmt.Errorf("%w: load graph '%s': %w", domain.ErrStore, graphID, err)
	}

	// Persistence must outlive a cancelled caller, or the record would be stuck in running.
	storeCtx := context.WithoutCancel(ctx)

	run := domain.NewRun(e.newID(), graph.ID, initial)
	logger := e.logger.With("graph_id", graph.ID, "run_id", run.ID)
	if err := e.save(storeCtx, run); err != nil {
		return nil, err
	}

	started := time.Now()
	e.emitRunStart(ctx, run)
	logger.Debug("run started", "start_node", graph.StartNodeID)

	var fault error
	current := graph.StartNodeID
	for current != "" {
		if e.maxSteps > 0 && len(run.Log) >= e.maxSteps {
			fault = fmt.Errorf("%w: %d nodes entered", domain.ErrStepBudgetExceeded, len(run.Log))
			break
		}

		// Snapshot before the node runs, so the entry records what the node saw.
		run.Log = append(run.Log, domain.LogEntry{NodeID: current, StateSnapshot: run.State.Clone()})
		step := len(run.Log)
		if err := e.save(storeCtx, run); err != nil {
			return run.Clone(), err
		}

		e.emitNodeEnter(ctx, run, current, step)
		logger.Debug("entering node", "node_id", current, "step", step)

		next, err := e.step(ctx, graph, run, current)
		e.emitNodeLeave(ctx, run, current, step)
		if err != nil {
			fault = err
			break
		}
		current = next
	}

	if fault != nil {
		run.Status = domain.RunFailed
		run.LastError = fault.Error()
	} else {
		run.Status = domain.RunCompleted
	}

	if err := e.save(storeCtx, run); err != nil {
		return run.Clone(), err
	}
	e.emitRunFinish(ctx, run)

	if fault != nil {
		logger.Warn("run failed", "steps", len(run.Log), "err", fault, "duration", time.Since(started))
	} else {
		logger.Info("run completed", "steps", len(run.Log), "duration", time.Since(started))
	}
	return run.Clone(), nil
}

func (e *Engine) save(ctx context.Context, run *domain.Run) error {
	if err := e.runs.Put(ctx, run); err != nil {
		return fmt.Errorf("%w: save run '%s': %w", domain.ErrStore, run.ID, err)
	}
	return nil
}
