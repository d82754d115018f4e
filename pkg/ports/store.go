package ports

import (
	"context"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore persists immutable graph definitions keyed by graph ID.
type GraphStore interface {
	// Get retrieves the graph with the given ID.
	// Returns domain.ErrGraphNotFound if the graph does not exist.
	Get(ctx context.Context, graphID string) (*domain.Graph, error)

	// Put stores a graph under its ID.
	Put(ctx context.Context, graph *domain.Graph) error

	// List returns the IDs of every stored graph.
	List(ctx context.Context) ([]string, error)
}

// RunStore persists run records keyed by run ID.
// The engine writes the whole record after every step, so Put must replace atomically:
// readers see either the previous record or the new one, never a mix.
type RunStore interface {
	// Get retrieves the latest stored record of a run.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Get(ctx context.Context, runID string) (*domain.Run, error)

	// Put creates or replaces the record of a run.
	Put(ctx context.Context, run *domain.Run) error

	// List returns the IDs of every stored run.
	List(ctx context.Context) ([]string, error)
}
