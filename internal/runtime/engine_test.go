package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	graphs *memory.GraphStore
	runs   *memory.RunStore
	tools  *registry.Registry
	engine *runtime.Engine
}

func newFixture(opts ...runtime.EngineOption) *fixture {
	f := &fixture{
		graphs: memory.NewGraphStore(),
		runs:   memory.NewRunStore(),
		tools:  registry.NewRegistry(),
	}
	f.engine = runtime.NewEngine(f.graphs, f.runs, f.tools, opts...)
	return f
}

// set returns a tool that writes key=value.
func set(key string, value any) registry.ToolFunction {
	return func(_ context.Context, s domain.State) (domain.State, error) {
		s[key] = value
		return s, nil
	}
}

func increment(key string) registry.ToolFunction {
	return func(_ context.Context, s domain.State) (domain.State, error) {
		n, _ := s[key].(int)
		s[key] = n + 1
		return s, nil
	}
}

func (f *fixture) create(t *testing.T, def domain.GraphDefinition) string {
	t.Helper()
	id, err := f.engine.CreateGraph(context.Background(), def)
	require.NoError(t, err)
	return id
}

func linear(ids ...string) domain.GraphDefinition {
	def := domain.GraphDefinition{StartNodeID: ids[0]}
	for i, id := range ids {
		def.Nodes = append(def.Nodes, domain.NodeSpec{ID: id, ToolName: id})
		if i > 0 {
			def.Edges = append(def.Edges, domain.Edge{Source: ids[i-1], Target: id})
		}
	}
	return def
}

func TestEngine_LinearRun(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("a", 1))
	f.tools.Register("b", set("b", 2))
	f.tools.Register("c", set("c", 3))
	graphID := f.create(t, linear("a", "b", "c"))

	run, err := f.engine.Run(context.Background(), graphID, domain.State{"seed": true})
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Empty(t, run.LastError)
	assert.Equal(t, graphID, run.GraphID)
	assert.Equal(t, []string{"a", "b", "c"}, run.Visited())
	assert.Equal(t, domain.State{"seed": true, "a": 1, "b": 2, "c": 3}, run.State)

	// Entry i holds the state right before node i executed.
	assert.Equal(t, domain.State{"seed": true}, run.Log[0].StateSnapshot)
	assert.Equal(t, domain.State{"seed": true, "a": 1}, run.Log[1].StateSnapshot)
	assert.Equal(t, domain.State{"seed": true, "a": 1, "b": 2}, run.Log[2].StateSnapshot)

	stored, err := f.runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, stored)
}

func TestEngine_InitialStateIsCopied(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("added", "yes"))
	graphID := f.create(t, linear("a"))

	initial := domain.State{"k": "v"}
	_, err := f.engine.Run(context.Background(), graphID, initial)
	require.NoError(t, err)
	assert.Equal(t, domain.State{"k": "v"}, initial)
}

func TestEngine_SnapshotIsolation(t *testing.T) {
	f := newFixture()
	f.tools.Register("append", func(_ context.Context, s domain.State) (domain.State, error) {
		items := s["items"].([]any)
		items[0] = "mutated"
		s["items"] = append(items, "more")
		nested := s["nested"].(map[string]any)
		nested["touched"] = true
		return s, nil
	})
	f.tools.Register("noop", func(_ context.Context, s domain.State) (domain.State, error) { return s, nil })
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "first",
		Nodes:       []domain.NodeSpec{{ID: "first", ToolName: "append"}, {ID: "second", ToolName: "noop"}},
		Edges:       []domain.Edge{{Source: "first", Target: "second"}},
	})

	run, err := f.engine.Run(context.Background(), graphID, domain.State{
		"items":  []any{"original"},
		"nested": map[string]any{},
	})
	require.NoError(t, err)
	require.Len(t, run.Log, 2)

	assert.Equal(t, []any{"original"}, run.Log[0].StateSnapshot["items"])
	assert.Equal(t, map[string]any{}, run.Log[0].StateSnapshot["nested"])
	assert.Equal(t, []any{"mutated", "more"}, run.Log[1].StateSnapshot["items"])
}

func TestEngine_EdgeOrder(t *testing.T) {
	newGraph := func(f *fixture) string {
		for _, name := range []string{"start", "x", "y", "z"} {
			f.tools.Register(name, set("visited_"+name, true))
		}
		return f.create(t, domain.GraphDefinition{
			StartNodeID: "start",
			Nodes: []domain.NodeSpec{
				{ID: "start", ToolName: "start"}, {ID: "x", ToolName: "x"},
				{ID: "y", ToolName: "y"}, {ID: "z", ToolName: "z"},
			},
			Edges: []domain.Edge{
				{Source: "start", Target: "x", Condition: &domain.Condition{Key: "route", Op: domain.OpEqual, Value: "x"}},
				{Source: "start", Target: "y", Condition: &domain.Condition{Key: "score", Op: domain.OpGreaterThan, Value: 10}},
				{Source: "start", Target: "z"},
			},
		})
	}

	tests := []struct {
		name    string
		initial domain.State
		want    []string
	}{
		{"first condition wins", domain.State{"route": "x", "score": 50}, []string{"start", "x"}},
		{"second condition", domain.State{"route": "other", "score": 50}, []string{"start", "y"}},
		{"fallback", domain.State{"score": 1}, []string{"start", "z"}},
		{"incomparable falls through", domain.State{"score": "high"}, []string{"start", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			run, err := f.engine.Run(context.Background(), newGraph(f), tt.initial)
			require.NoError(t, err)
			assert.Equal(t, domain.RunCompleted, run.Status)
			assert.Equal(t, tt.want, run.Visited())
		})
	}
}

func TestEngine_NoEdgeQualifies(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("n", 1))
	f.tools.Register("b", set("n", 2))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "a",
		Nodes:       []domain.NodeSpec{{ID: "a", ToolName: "a"}, {ID: "b", ToolName: "b"}},
		Edges:       []domain.Edge{{Source: "a", Target: "b", Condition: &domain.Condition{Key: "n", Op: domain.OpGreaterThan, Value: 5}}},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, []string{"a"}, run.Visited())
}

func TestEngine_UnknownGraph(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("a", 1))
	_, err := f.engine.Run(context.Background(), f.create(t, linear("a")), nil)
	require.NoError(t, err)
	before := f.runs.Len()

	run, err := f.engine.Run(context.Background(), "does-not-exist", domain.State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	assert.Nil(t, run)
	assert.Equal(t, before, f.runs.Len())
}

func TestEngine_ToolFaultOnMissingKey(t *testing.T) {
	f := newFixture()
	f.tools.Register("produce", set("produced", "value"))
	f.tools.Register("consume", func(_ context.Context, s domain.State) (domain.State, error) {
		v, ok := s["required"]
		if !ok {
			return nil, errors.New("missing required key 'required'")
		}
		s["copy"] = v
		return s, nil
	})
	f.tools.Register("after", set("after", true))
	graphID := f.create(t, linear("produce", "consume", "after"))

	run, err := f.engine.Run(context.Background(), graphID, domain.State{"text": "hi"})
	require.NoError(t, err, "execution faults are not returned to the caller")

	assert.Equal(t, domain.RunFailed, run.Status)
	assert.NotEmpty(t, run.LastError)
	assert.Contains(t, run.LastError, "missing required key")
	assert.Contains(t, run.LastError, "consume")
	assert.Equal(t, domain.State{"text": "hi", "produced": "value"}, run.State)
	assert.Equal(t, []string{"produce", "consume"}, run.Visited())
}

func TestEngine_UnregisteredTool(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("a", 1))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "a",
		Nodes:       []domain.NodeSpec{{ID: "a", ToolName: "a"}, {ID: "b", ToolName: "ghost_tool"}},
		Edges:       []domain.Edge{{Source: "a", Target: "b"}},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.LastError, "ghost_tool")
	assert.Contains(t, run.LastError, domain.ErrToolNotFound.Error())
	assert.Equal(t, []string{"a", "b"}, run.Visited())
	assert.Equal(t, domain.State{"a": 1}, run.State)
}

func TestEngine_UnknownTargetNode(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("a", 1))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "a",
		Nodes:       []domain.NodeSpec{{ID: "a", ToolName: "a"}},
		Edges:       []domain.Edge{{Source: "a", Target: "nowhere"}},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.LastError, "nowhere")
	assert.Contains(t, run.LastError, domain.ErrNodeNotFound.Error())
	assert.Equal(t, []string{"a", "nowhere"}, run.Visited())
}

func TestEngine_ToolPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.tools.Register("boom", func(context.Context, domain.State) (domain.State, error) {
		var m map[string]int
		m["x"] = 1 // nil map write panics
		return nil, nil
	})
	graphID := f.create(t, linear("boom"))

	run, err := f.engine.Run(context.Background(), graphID, domain.State{"keep": 1})
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.LastError, "panic")
	assert.Equal(t, domain.State{"keep": 1}, run.State)
}

func TestEngine_ToolReturningNewOrNilState(t *testing.T) {
	f := newFixture()
	f.tools.Register("replace", func(context.Context, domain.State) (domain.State, error) {
		return domain.State{"fresh": true}, nil
	})
	f.tools.Register("inplace", func(_ context.Context, s domain.State) (domain.State, error) {
		s["inplace"] = true
		return nil, nil
	})
	graphID := f.create(t, linear("replace", "inplace"))

	run, err := f.engine.Run(context.Background(), graphID, domain.State{"old": true})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, domain.State{"fresh": true, "inplace": true}, run.State)
}

func TestEngine_CycleDrivenByState(t *testing.T) {
	f := newFixture()
	f.tools.Register("inc", increment("n"))
	f.tools.Register("done", set("done", true))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "loop",
		Nodes:       []domain.NodeSpec{{ID: "loop", ToolName: "inc"}, {ID: "exit", ToolName: "done"}},
		Edges: []domain.Edge{
			{Source: "loop", Target: "loop", Condition: &domain.Condition{Key: "n", Op: domain.OpLessThan, Value: 5}},
			{Source: "loop", Target: "exit"},
		},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 5, run.State["n"])
	assert.Len(t, run.Log, 6)
}

// stepLoop builds a self-loop that increments n until it reaches limit.
func (f *fixture) stepLoop(t testing.TB, limit int) string {
	f.tools.Register("inc", increment("n"))
	id, err := f.engine.CreateGraph(context.Background(), domain.GraphDefinition{
		StartNodeID: "loop",
		Nodes:       []domain.NodeSpec{{ID: "loop", ToolName: "inc"}},
		Edges: []domain.Edge{
			{Source: "loop", Target: "loop", Condition: &domain.Condition{Key: "n", Op: domain.OpLessThan, Value: limit}},
		},
	})
	require.NoError(t, err)
	return id
}

func TestEngine_LongLoopStaysLinear(t *testing.T) {
	f := newFixture()
	const steps = 5000
	graphID := f.stepLoop(t, steps)

	start := time.Now()
	run, err := f.engine.Run(context.Background(), graphID, domain.State{"payload": strings.Repeat("x", 64)})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	require.Len(t, run.Log, steps)
	assert.Equal(t, steps-1, run.Log[steps-1].StateSnapshot["n"])
	assert.Less(t, time.Since(start), 5*time.Second)

	stored, err := f.runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Log, steps)
}

func BenchmarkEngine_Loop(b *testing.B) {
	for _, steps := range []int{500, 2000} {
		b.Run(fmt.Sprintf("steps=%d", steps), func(b *testing.B) {
			f := newFixture()
			graphID := f.stepLoop(b, steps)
			for i := 0; i < b.N; i++ {
				if _, err := f.engine.Run(context.Background(), graphID, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestEngine_StepBudget(t *testing.T) {
	f := newFixture(runtime.WithMaxSteps(10))
	f.tools.Register("inc", increment("n"))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "spin",
		Nodes:       []domain.NodeSpec{{ID: "spin", ToolName: "inc"}},
		Edges:       []domain.Edge{{Source: "spin", Target: "spin"}},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.LastError, domain.ErrStepBudgetExceeded.Error())
	assert.Len(t, run.Log, 10)
	assert.Equal(t, 10, run.State["n"])
}

func TestEngine_InFlightReadsSeeRunning(t *testing.T) {
	f := newFixture()
	var observed *domain.Run
	f.tools.Register("a", set("a", 1))
	f.tools.Register("peek", func(ctx context.Context, s domain.State) (domain.State, error) {
		ids, err := f.runs.List(ctx)
		if err != nil || len(ids) != 1 {
			return nil, fmt.Errorf("unexpected runs: %v %v", ids, err)
		}
		observed, err = f.runs.Get(ctx, ids[0])
		return s, err
	})
	graphID := f.create(t, linear("a", "peek"))

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, run.Status)

	require.NotNil(t, observed)
	assert.Equal(t, domain.RunRunning, observed.Status)
	assert.Equal(t, []string{"a", "peek"}, observed.Visited())
	assert.Equal(t, 1, observed.State["a"])
}

func TestEngine_CancelledContextDoesNotAbort(t *testing.T) {
	f := newFixture()
	f.tools.Register("a", set("a", 1))
	f.tools.Register("b", set("b", 2))
	graphID := f.create(t, linear("a", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.engine.Run(ctx, graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, []string{"a", "b"}, run.Visited())
}

func TestEngine_IDGenerator(t *testing.T) {
	n := 0
	f := newFixture(runtime.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	f.tools.Register("a", set("a", 1))

	graphID := f.create(t, linear("a"))
	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", graphID)
	assert.Equal(t, "id-2", run.ID)
}

func TestEngine_CustomEvaluator(t *testing.T) {
	f := newFixture(runtime.WithConditionEvaluator(func(domain.Condition, domain.State) bool { return false }))
	f.tools.Register("a", set("a", 1))
	f.tools.Register("b", set("b", 1))
	graphID := f.create(t, domain.GraphDefinition{
		StartNodeID: "a",
		Nodes:       []domain.NodeSpec{{ID: "a", ToolName: "a"}, {ID: "b", ToolName: "b"}},
		Edges:       []domain.Edge{{Source: "a", Target: "b", Condition: &domain.Condition{Key: "a", Op: domain.OpEqual, Value: 1}}},
	})

	run, err := f.engine.Run(context.Background(), graphID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, run.Visited())
}
