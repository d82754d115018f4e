package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// RunStore implements ports.RunStore in memory.
// Records are deep-copied on the way in and out, so a run in progress never shares
// state with a reader.
type RunStore struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.Run),
	}
}

// Put replaces the stored record of the run.
func (s *RunStore) Put(ctx context.Context, run *domain.Run) error {
	copied := run.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = copied
	return nil
}

// Get retrieves a copy of the latest record of the run.
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	run, ok := s.data[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrRunNotFound
	}
	// Stored records are never mutated in place, so copying outside the lock is safe.
	return run.Clone(), nil
}

// List returns the stored run IDs in sorted order.
func (s *RunStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
