package runtime

import (
	"context"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func (e *Engine) base(run *domain.Run, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		RunID:     run.ID,
		GraphID:   run.GraphID,
	}
}

func (e *Engine) emitRunStart(ctx context.Context, run *domain.Run) {
	if e.hooks.OnRunStart == nil {
		return
	}
	e.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: e.base(run, domain.EventRunStart),
		Status:    run.Status,
	})
}

func (e *Engine) emitRunFinish(ctx context.Context, run *domain.Run) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	e.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase: e.base(run, domain.EventRunFinish),
		Status:    run.Status,
		Steps:     len(run.Log),
		Error:     run.LastError,
	})
}

func (e *Engine) emitNodeEnter(ctx context.Context, run *domain.Run, nodeID string, step int) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(run, domain.EventNodeEnter),
		NodeID:    nodeID,
		Step:      step,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, run *domain.Run, nodeID string, step int) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(run, domain.EventNodeLeave),
		NodeID:    nodeID,
		Step:      step,
	})
}

func (e *Engine) emitToolCall(ctx context.Context, run *domain.Run, nodeID, toolName string) {
	if e.hooks.OnToolCall == nil {
		return
	}
	e.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: e.base(run, domain.EventToolCall),
		NodeID:    nodeID,
		ToolName:  toolName,
	})
}

func (e *Engine) emitToolReturn(ctx context.Context, run *domain.Run, nodeID, toolName string, d time.Duration, isErr bool) {
	if e.hooks.OnToolReturn == nil {
		return
	}
	e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase: e.base(run, domain.EventToolReturn),
		NodeID:    nodeID,
		ToolName:  toolName,
		Duration:  d,
		IsError:   isErr,
	})
}
