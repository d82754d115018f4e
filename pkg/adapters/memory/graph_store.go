package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore implements ports.GraphStore in memory.
// Safe for concurrent use.
type GraphStore struct {
	data map[string]*domain.Graph
	mu   sync.RWMutex
}

// NewGraphStore creates a new in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		data: make(map[string]*domain.Graph),
	}
}

// Put stores a copy of the graph.
func (s *GraphStore) Put(ctx context.Context, graph *domain.Graph) error {
	copied := graph.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[graph.ID] = copied
	return nil
}

// Get retrieves a copy of the graph so callers can't mutate the stored definition.
func (s *GraphStore) Get(ctx context.Context, graphID string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, ok := s.data[graphID]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}
	return graph.Clone(), nil
}

// List returns the stored graph IDs in sorted order.
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored graphs.
func (s *GraphStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
