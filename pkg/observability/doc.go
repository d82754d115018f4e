/*
Package observability turns engine lifecycle events into metrics and logs.

Metrics exposes Prometheus collectors fed by domain.LifecycleHooks. Logging
emits one structured record per event. Chain fans a single event out to
several hook sets, so both can be attached to the same engine:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	engine := stepgraph.New(stepgraph.WithLifecycleHooks(
		observability.Chain(m.Hooks(), observability.Logging(logger)),
	))
*/
package observability
