package ports

import (
	"context"
	"testing"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore implementation
// adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()

	newGraph := func() *domain.Graph {
		return domain.GraphDefinition{
			StartNodeID: "split",
			Nodes: []domain.NodeSpec{
				{ID: "split", ToolName: "split_text"},
				{ID: "refine", ToolName: "refine_summary"},
				{ID: "done", ToolName: "noop"},
			},
			Edges: []domain.Edge{
				{Source: "split", Target: "refine", Condition: &domain.Condition{Key: "summary", Op: domain.OpLengthGreaterThan, Value: 400}},
				{Source: "split", Target: "done"},
			},
		}.Compile("graph-" + uuid.NewString())
	}

	t.Run("Put and Get", func(t *testing.T) {
		g := newGraph()
		require.NoError(t, store.Put(ctx, g), "Put should not return error")

		loaded, err := store.Get(ctx, g.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, g.ID, loaded.ID)
		assert.Equal(t, "split", loaded.StartNodeID)
		assert.Equal(t, g.Nodes, loaded.Nodes)

		// Edge priority order must survive persistence.
		edges := loaded.Edges["split"]
		require.Len(t, edges, 2)
		assert.Equal(t, "refine", edges[0].Target)
		assert.Equal(t, "done", edges[1].Target)
		require.NotNil(t, edges[0].Condition)
		assert.Equal(t, domain.OpLengthGreaterThan, edges[0].Condition.Op)
		// JSON backends return numbers as float64.
		assert.EqualValues(t, 400, edges[0].Condition.Value)
		assert.Nil(t, edges[1].Condition)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "graph-missing-"+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		g := newGraph()
		require.NoError(t, store.Put(ctx, g))

		g.Nodes["split"] = "tampered"
		loaded, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "split_text", loaded.Nodes["split"], "stored graph must not alias the caller's")

		loaded.Nodes["refine"] = "tampered"
		again, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "refine_summary", again.Nodes["refine"], "loaded graph must not alias the store's")
	})

	t.Run("List", func(t *testing.T) {
		g1, g2 := newGraph(), newGraph()
		require.NoError(t, store.Put(ctx, g1))
		require.NoError(t, store.Put(ctx, g2))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, g1.ID)
		assert.Contains(t, ids, g2.ID)
	})
}

// RunRunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()

	newRun := func() *domain.Run {
		return domain.NewRun("run-"+uuid.NewString(), "graph-1", domain.State{"foo": "bar", "count": 42})
	}

	t.Run("Put and Get", func(t *testing.T) {
		run := newRun()
		require.NoError(t, store.Put(ctx, run), "Put should not return error")

		loaded, err := store.Get(ctx, run.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, run.ID, loaded.ID)
		assert.Equal(t, "graph-1", loaded.GraphID)
		assert.Equal(t, domain.RunRunning, loaded.Status)
		assert.Equal(t, "bar", loaded.State["foo"])
		assert.EqualValues(t, 42, loaded.State["count"])
		assert.Empty(t, loaded.Log)
		assert.Empty(t, loaded.LastError)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "run-missing-"+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Put Replaces", func(t *testing.T) {
		run := newRun()
		require.NoError(t, store.Put(ctx, run))

		run.Log = append(run.Log, domain.LogEntry{NodeID: "a", StateSnapshot: run.State.Clone()})
		run.State["foo"] = "baz"
		run.Status = domain.RunFailed
		run.LastError = "boom"
		require.NoError(t, store.Put(ctx, run))

		loaded, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunFailed, loaded.Status)
		assert.Equal(t, "boom", loaded.LastError)
		assert.Equal(t, "baz", loaded.State["foo"])
		require.Len(t, loaded.Log, 1)
		assert.Equal(t, "a", loaded.Log[0].NodeID)
		assert.Equal(t, "bar", loaded.Log[0].StateSnapshot["foo"])
	})

	t.Run("Isolation", func(t *testing.T) {
		run := newRun()
		require.NoError(t, store.Put(ctx, run))

		run.State["foo"] = "changed after put"
		loaded, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "bar", loaded.State["foo"], "stored run must not alias the caller's state")

		loaded.State["foo"] = "changed after get"
		again, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "bar", again.State["foo"], "loaded run must not alias the store's state")
	})

	t.Run("List", func(t *testing.T) {
		r1, r2 := newRun(), newRun()
		require.NoError(t, store.Put(ctx, r1))
		require.NoError(t, store.Put(ctx, r2))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, r1.ID)
		assert.Contains(t, ids, r2.ID)
	})
}
