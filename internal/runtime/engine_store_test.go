package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRunStore fails every Put after the first failAfter calls.
type flakyRunStore struct {
	*memory.RunStore
	failAfter int
	puts      int
}

func (s *flakyRunStore) Put(ctx context.Context, run *domain.Run) error {
	s.puts++
	if s.puts > s.failAfter {
		return errors.New("disk full")
	}
	return s.RunStore.Put(ctx, run)
}

type brokenGraphStore struct{ *memory.GraphStore }

func (brokenGraphStore) Get(context.Context, string) (*domain.Graph, error) {
	return nil, errors.New("connection refused")
}

func TestEngine_RunStoreFailure(t *testing.T) {
	graphs := memory.NewGraphStore()
	runs := &flakyRunStore{RunStore: memory.NewRunStore(), failAfter: 1}
	tools := registry.NewRegistry()
	tools.Register("a", set("a", 1))
	engine := runtime.NewEngine(graphs, runs, tools)

	graphID, err := engine.CreateGraph(context.Background(), linear("a"))
	require.NoError(t, err)

	run, err := engine.Run(context.Background(), graphID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, run, "the run was created before the failure")
}

func TestEngine_GraphStoreFailure(t *testing.T) {
	engine := runtime.NewEngine(brokenGraphStore{memory.NewGraphStore()}, memory.NewRunStore(), registry.NewRegistry())

	_, err := engine.Run(context.Background(), "any", nil)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrGraphNotFound)
}
