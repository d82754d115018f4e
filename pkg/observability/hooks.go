package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Chain combines several hook sets. Each event is delivered to every set, in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnRunStart = chainRun(out.OnRunStart, h.OnRunStart)
		out.OnRunFinish = chainRun(out.OnRunFinish, h.OnRunFinish)
		out.OnNodeEnter = chainNode(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chainNode(out.OnNodeLeave, h.OnNodeLeave)
		out.OnToolCall = chainTool(out.OnToolCall, h.OnToolCall)
		out.OnToolReturn = chainTool(out.OnToolReturn, h.OnToolReturn)
	}
	return out
}

func chainRun(a, b func(context.Context, *domain.RunEvent)) func(context.Context, *domain.RunEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.RunEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainNode(a, b func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainTool(a, b func(context.Context, *domain.ToolEvent)) func(context.Context, *domain.ToolEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.ToolEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

// Logging returns hooks that write every lifecycle event to logger.
// Node and tool events are logged at debug level, run events at info.
func Logging(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start", "graph_id", e.GraphID, "run_id", e.RunID)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelInfo
			if e.Status == domain.RunFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_finish",
				"graph_id", e.GraphID,
				"run_id", e.RunID,
				"status", e.Status,
				"steps", e.Steps,
				"error", e.Error,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID, "step", e.Step)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "node_id", e.NodeID, "tool", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return",
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"tool", e.ToolName,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
	}
}
