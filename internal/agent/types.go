// Package agent implements the bounded tool-calling orchestration loop: it
// drives the model capability through reason/act steps, dispatches tool
// calls, enforces the step ceiling with a late-stage wrap-up directive, and
// validates the model's final answer against the structured-output contract.
package agent

import (
	"encoding/json"
	"time"

	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/internal/tool"
)

// StopReason describes why the agent loop terminated.
type StopReason string

// StopReason constants for agent loop termination.
const (
	StopReasonComplete          StopReason = "complete"
	StopReasonStepLimit         StopReason = "step_limit_exceeded"
	StopReasonContractViolation StopReason = "contract_violation"
	StopReasonLoopDetected      StopReason = "loop_detected"
	StopReasonTokenBudget       StopReason = "token_budget"
	StopReasonTimeout           StopReason = "timeout"
	StopReasonModelError        StopReason = "model_error"
)

// ToolCallRecord tracks one tool invocation during the agent loop.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments json.RawMessage
	Output    tool.Output
	Duration  time.Duration
	Panicked  bool
}

// StreamEventType identifies the kind of streaming event.
type StreamEventType string

// StreamEventType constants for streaming events.
const (
	StreamEventText              StreamEventType = "text"
	StreamEventReasoning         StreamEventType = "reasoning"
	StreamEventToolStart         StreamEventType = "tool_start"
	StreamEventToolEnd           StreamEventType = "tool_end"
	StreamEventStep              StreamEventType = "step"
	StreamEventUsage             StreamEventType = "usage"
	StreamEventApprovalRequested StreamEventType = "approval_requested"
	StreamEventApprovalResponded StreamEventType = "approval_responded"
	StreamEventFinish            StreamEventType = "finish"
	StreamEventError             StreamEventType = "error"
)

// ApprovalDecision records the user's answer to a tool approval request.
type ApprovalDecision struct {
	Approved bool
	Reason   string
}

// StreamEvent is a single event emitted during a streaming agent loop.
type StreamEvent struct {
	Type     StreamEventType
	Content  string
	Step     int
	ToolCall *ToolCallRecord
	Usage    *provider.TokenUsage
	// Approval is set on StreamEventApprovalResponded; the matching
	// request ID rides in ToolCall.ID.
	Approval *ApprovalDecision
	// Final is set on StreamEventFinish with the aggregated loop response.
	Final *Response
	Err   error
}

// Request is the input to the agent loop.
type Request struct {
	Messages     []provider.LLMMessage
	SystemPrompt string
	Tools        []provider.ToolDefinition
	Config       LoopConfig
}

// Response is the output of the agent loop.
type Response struct {
	// Result is the validated structured answer. On non-complete stop
	// reasons it is a best-effort "could not complete" result.
	Result report.StructuredResult

	// Content is the raw final text from the model, useful when the
	// structured contract was violated.
	Content string

	ToolCalls  []ToolCallRecord
	TotalUsage provider.TokenUsage
	Steps      int
	StopReason StopReason
}
