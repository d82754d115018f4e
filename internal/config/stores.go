package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/stepgraph/pkg/adapters/badger"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/adapters/redis"
	"github.com/aretw0/stepgraph/pkg/persistence/middleware"
	"github.com/aretw0/stepgraph/pkg/ports"
)

// Stores is the graph and run storage selected by a Config.
type Stores struct {
	Graphs ports.GraphStore
	Runs   ports.RunStore

	closer func() error
}

// Close releases the backend connection, if any.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Open builds the stores for cfg.Store. Redis is pinged before returning.
// The run store is wrapped with redaction and encryption when configured.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mws, err := runMiddlewares(cfg.Store)
	if err != nil {
		return nil, err
	}
	stores, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	if len(mws) > 0 {
		stores.Runs = middleware.Wrap(stores.Runs, mws...)
		logger.Info("run store middleware enabled",
			"redact_keys", len(cfg.Store.RedactKeys),
			"encrypted", cfg.Store.EncryptionKey != "")
	}
	return stores, nil
}

// runMiddlewares returns redaction before encryption so masked values are what gets sealed.
func runMiddlewares(sc StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(sc.RedactKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(sc.RedactKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if sc.EncryptionKey != "" {
		active, err := middleware.ParseKey(sc.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("store encryption key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range sc.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("store fallback key: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return mws, nil
}

func openBackend(ctx context.Context, sc StoreConfig, logger *slog.Logger) (*Stores, error) {

	switch sc.Backend {
	case BackendMemory, "":
		return &Stores{Graphs: memory.NewGraphStore(), Runs: memory.NewRunStore()}, nil

	case BackendRedis:
		opts := []redis.Option{redis.WithTTL(sc.Redis.RunTTL)}
		if sc.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(sc.Redis.Prefix))
		}
		store := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB, opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", sc.Redis.Addr, err)
		}
		logger.Info("using redis store", "addr", sc.Redis.Addr, "db", sc.Redis.DB)
		return &Stores{Graphs: store.Graphs(), Runs: store.Runs(), closer: store.Close}, nil

	case BackendBadger:
		store, err := badger.Open(sc.Badger.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger %q: %w", sc.Badger.Dir, err)
		}
		logger.Info("using badger store", "dir", sc.Badger.Dir)
		return &Stores{Graphs: store.Graphs(), Runs: store.Runs(), closer: store.Close}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}
