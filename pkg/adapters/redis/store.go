package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stepgraph/internal/xjson"
	"github.com/aretw0/stepgraph/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when WithPrefix is not given.
const DefaultPrefix = "stepgraph:"

// noExpiry is the index score used for records without TTL (2100-01-01).
const noExpiry = 4102444800

// Store holds the Redis connection shared by the graph and run stores.
// Keys are laid out as <prefix>graph:<id> and <prefix>run:<id>, each namespace with
// its own ZSET index at <prefix><namespace>:index.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for run records. Graphs never expire.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Graphs returns the ports.GraphStore view of the store.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{ns: namespace{store: s, name: "graph"}}
}

// Runs returns the ports.RunStore view of the store.
func (s *Store) Runs() *RunStore {
	return &RunStore{ns: namespace{store: s, name: "run", ttl: s.ttl}}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

type namespace struct {
	store *Store
	name  string
	ttl   time.Duration
}

func (n namespace) key(id string) string {
	return n.store.prefix + n.name + ":" + id
}

func (n namespace) indexKey() string {
	return n.store.prefix + n.name + ":index"
}

func (n namespace) save(ctx context.Context, id string, v any) error {
	data, err := xjson.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", n.name, err)
	}

	pipe := n.store.client.TxPipeline()

	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, n.key(id), data, n.ttl)

	// Score = Now + TTL so List can prune expired members lazily.
	score := float64(time.Now().Add(n.ttl).Unix())
	if n.ttl == 0 {
		score = noExpiry
	}
	pipe.ZAdd(ctx, n.indexKey(), backend.Z{
		Score:  score,
		Member: id,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", n.name, err)
	}
	return nil
}

// load reports found=false when the key does not exist.
func (n namespace) load(ctx context.Context, id string, v any) (found bool, err error) {
	val, err := n.store.client.Get(ctx, n.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s from redis: %w", n.name, err)
	}

	if err := xjson.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", n.name, err)
	}
	return true, nil
}

func (n namespace) list(ctx context.Context) ([]string, error) {
	if n.ttl > 0 {
		now := float64(time.Now().Unix())
		err := n.store.client.ZRemRangeByScore(ctx, n.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to prune expired %s index: %w", n.name, err)
		}
	}

	ids, err := n.store.client.ZRange(ctx, n.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", n.name, err)
	}
	return ids, nil
}

// GraphStore implements ports.GraphStore using Redis.
type GraphStore struct {
	ns namespace
}

// Put persists the graph as JSON.
func (g *GraphStore) Put(ctx context.Context, graph *domain.Graph) error {
	return g.ns.save(ctx, graph.ID, graph)
}

// Get retrieves the graph from Redis.
func (g *GraphStore) Get(ctx context.Context, graphID string) (*domain.Graph, error) {
	var graph domain.Graph
	found, err := g.ns.load(ctx, graphID, &graph)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrGraphNotFound
	}
	return &graph, nil
}

// List returns the stored graph IDs.
func (g *GraphStore) List(ctx context.Context) ([]string, error) {
	return g.ns.list(ctx)
}

// RunStore implements ports.RunStore using Redis.
type RunStore struct {
	ns namespace
}

// Put replaces the run record. SET is atomic, so readers never see a partial record.
func (r *RunStore) Put(ctx context.Context, run *domain.Run) error {
	return r.ns.save(ctx, run.ID, run)
}

// Get retrieves the latest record of the run.
func (r *RunStore) Get(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	found, err := r.ns.load(ctx, runID, &run)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

// List returns the IDs of runs that have not expired.
func (r *RunStore) List(ctx context.Context) ([]string, error) {
	return r.ns.list(ctx)
}
