package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/dgraph-io/badger/v3"
)

const (
	graphPrefix = "graph:"
	runPrefix   = "run:"
)

// Store keeps graphs and runs in a single Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database in dir.
// An empty dir opens an in-memory database. A nil logger discards Badger's own logs.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(slogAdapter{logger: logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// NewFromDB wraps an already open database.
func NewFromDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Graphs returns the ports.GraphStore view of the store.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{db: s.db}
}

// Runs returns the ports.RunStore view of the store.
func (s *Store) Runs() *RunStore {
	return &RunStore{db: s.db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func put(db *badger.DB, key string, v any) error {
	data, err := xjson.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get reports found=false when the key does not exist.
func get(db *badger.DB, key string, v any) (found bool, err error) {
	var data []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := xjson.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func listIDs(db *badger.DB, prefix string) ([]string, error) {
	ids := []string{}
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s keys: %w", strings.TrimSuffix(prefix, ":"), err)
	}
	return ids, nil
}

// GraphStore implements ports.GraphStore on Badger.
type GraphStore struct {
	db *badger.DB
}

func (g *GraphStore) Put(ctx context.Context, graph *domain.Graph) error {
	return put(g.db, graphPrefix+graph.ID, graph)
}

func (g *GraphStore) Get(ctx context.Context, graphID string) (*domain.Graph, error) {
	var graph domain.Graph
	found, err := get(g.db, graphPrefix+graphID, &graph)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrGraphNotFound
	}
	return &graph, nil
}

// List returns graph IDs in key order.
func (g *GraphStore) List(ctx context.Context) ([]string, error) {
	return listIDs(g.db, graphPrefix)
}

// RunStore implements ports.RunStore on Badger.
// Each Put is a single transaction, so a record is replaced atomically.
type RunStore struct {
	db *badger.DB
}

func (r *RunStore) Put(ctx context.Context, run *domain.Run) error {
	return put(r.db, runPrefix+run.ID, run)
}

func (r *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	found, err := get(r.db, runPrefix+runID, &run)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

// List returns run IDs in key order.
func (r *RunStore) List(ctx context.Context) ([]string, error) {
	return listIDs(r.db, runPrefix)
}
