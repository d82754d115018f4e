package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/config"
	"github.com/aretw0/stepgraph/internal/logging"
	loamadapter "github.com/aretw0/stepgraph/pkg/adapters/loam"
	"github.com/aretw0/stepgraph/pkg/adapters/process"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/observability"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/tools/summarize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app bundles an engine with the resources it was built from.
type app struct {
	engine  *stepgraph.Engine
	tools   *registry.Registry
	stores  *config.Stores
	metrics *prometheus.Registry
	logger  *slog.Logger
}

// newRegistry returns the registry with every built-in tool plus the
// process tools declared in cfg.ToolsFile.
func newRegistry(cfg config.Config) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	summarize.Register(reg)
	if cfg.ToolsFile == "" {
		return reg, nil
	}
	tools, err := process.LoadTools(cfg.ToolsFile)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(process.WithRegistry(tools), process.WithBaseDir(filepath.Dir(cfg.ToolsFile)))
	runner.Install(reg)
	return reg, nil
}

// newLogger builds the logger for cfg. format is "text" or "json".
func newLogger(cfg config.Config, format string) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewFor(format, level)
}

// newApp opens the configured stores and wires hooks into a new engine.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	tools, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	stores, err := config.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{tools: tools, stores: stores, logger: logger}
	hooks := []domain.LifecycleHooks{observability.Logging(logger)}
	if cfg.Metrics {
		a.metrics = prometheus.NewRegistry()
		a.metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hooks = append(hooks, observability.NewMetrics(a.metrics).Hooks())
	}

	a.engine = stepgraph.New(
		stepgraph.WithRegistry(a.tools),
		stepgraph.WithGraphStore(stores.Graphs),
		stepgraph.WithRunStore(stores.Runs),
		stepgraph.WithLogger(logger),
		stepgraph.WithMaxSteps(cfg.MaxSteps),
		stepgraph.WithLifecycleHooks(observability.Chain(hooks...)),
	)

	if cfg.CatalogDir != "" {
		if err := a.loadCatalog(ctx, cfg.CatalogDir); err != nil {
			_ = stores.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) loadCatalog(ctx context.Context, dir string) error {
	catalog, err := loamadapter.Open(dir)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	ids, err := catalog.Load(ctx, a.engine)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	for name, id := range ids {
		a.logger.Info("graph loaded from catalog", "name", name, "graph_id", id)
	}
	return nil
}

func (a *app) Close() error {
	return a.stores.Close()
}
