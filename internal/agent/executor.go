package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/tool"
)

// ToolExecutor handles parallel tool execution with panic recovery.
// All calls issued within one step are dispatched together and joined
// before the step completes: losing a tool result is not acceptable.
type ToolExecutor struct {
	registry        *tool.Registry
	requester       tool.ApprovalRequester
	approvalTimeout time.Duration
}

// ToolExecutorConfig holds the dependencies for tool execution.
type ToolExecutorConfig struct {
	Registry        *tool.Registry
	Requester       tool.ApprovalRequester
	ApprovalTimeout time.Duration
}

// NewToolExecutor creates a ToolExecutor from the given configuration.
func NewToolExecutor(cfg ToolExecutorConfig) *ToolExecutor {
	return &ToolExecutor{
		registry:        cfg.Registry,
		requester:       cfg.Requester,
		approvalTimeout: cfg.ApprovalTimeout,
	}
}

// Execute runs all tool calls in parallel and returns results in input order.
// Panics in individual tools are recovered and reported as error outputs.
func (e *ToolExecutor) Execute(ctx context.Context, calls []provider.ToolCall) []ToolCallRecord {
	results := make([]ToolCallRecord, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc provider.ToolCall) {
			defer wg.Done()
			results[idx] = e.executeSingle(ctx, tc)
		}(i, call)
	}

	wg.Wait()
	return results
}

func (e *ToolExecutor) executeSingle(ctx context.Context, tc provider.ToolCall) (record ToolCallRecord) {
	record.ID = tc.ID
	record.Name = tc.Name
	record.Arguments = tc.Arguments

	start := time.Now()

	defer func() {
		record.Duration = time.Since(start)
		if r := recover(); r != nil {
			record.Panicked = true
			record.Output = tool.Output{
				Content: fmt.Sprintf("panic: %v", r),
				IsError: true,
			}
		}
	}()

	out, err := e.registry.Execute(ctx, tc.Name, tc.Arguments, e.requester, e.approvalTimeout)
	if err != nil {
		record.Output = tool.Output{
			Content: err.Error(),
			IsError: true,
		}
		return record
	}

	record.Output = out
	return record
}
