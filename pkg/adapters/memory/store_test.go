package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.GraphStore = (*memory.GraphStore)(nil)
	_ ports.RunStore   = (*memory.RunStore)(nil)
)

func TestMemoryGraphStore_Contract(t *testing.T) {
	ports.RunGraphStoreContract(t, memory.NewGraphStore())
}

func TestMemoryRunStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, memory.NewRunStore())
}

func TestMemoryRunStore_SnapshotIsolation(t *testing.T) {
	store := memory.NewRunStore()
	ctx := context.Background()

	nested := map[string]any{"depth": 1}
	run := domain.NewRun("r1", "g1", domain.State{"nested": nested})
	require.NoError(t, store.Put(ctx, run))

	// Nested values must be copied too, not only the top-level map.
	nested["depth"] = 2
	loaded, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.State["nested"].(map[string]any)["depth"])
}

func TestMemoryRunStore_ConcurrentPut(t *testing.T) {
	store := memory.NewRunStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", i%5)
			run := domain.NewRun(id, "g", domain.State{"i": i})
			assert.NoError(t, store.Put(ctx, run))
			_, err := store.Get(ctx, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, store.Len())
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-0", "run-1", "run-2", "run-3", "run-4"}, ids)
}
