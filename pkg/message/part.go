package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for part validation and state transitions.
var (
	ErrUnknownPartType  = errors.New("message: unknown part type")
	ErrUnknownState     = errors.New("message: unknown part state")
	ErrBackwardState    = errors.New("message: part state cannot move backward")
	ErrTerminalState    = errors.New("message: part state is terminal")
	ErrMissingToolName  = errors.New("message: tool-call part requires tool_name")
	ErrMissingCallID    = errors.New("message: part requires call_id")
	ErrMissingApprovalID = errors.New("message: approval part requires id")
)

// Part is a flat union representing one piece of a message.
// The Type field discriminates which fields are meaningful.
type Part struct {
	Type PartType `json:"type"`

	// Content carries the payload of text and reasoning parts.
	Content string `json:"content,omitempty"`

	// Tool-call fields.
	ToolName string          `json:"tool_name,omitempty"`
	CallID   string          `json:"call_id,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`

	// Tool-result fields. Output and ErrorText are mutually exclusive.
	Output    json.RawMessage `json:"output,omitempty"`
	ErrorText string          `json:"error_text,omitempty"`

	// Approval fields.
	ID       string `json:"id,omitempty"`
	Approved *bool  `json:"approved,omitempty"`
	Reason   string `json:"reason,omitempty"`

	// State tracks the lifecycle of tool-call and approval parts.
	State PartState `json:"state,omitempty"`
}

// NewTextPart creates a text part.
func NewTextPart(content string) Part {
	return Part{Type: PartText, Content: content}
}

// NewReasoningPart creates a reasoning part.
func NewReasoningPart(content string) Part {
	return Part{Type: PartReasoning, Content: content}
}

// NewToolCallPart creates a tool-call part in the input-streaming state.
func NewToolCallPart(toolName, callID string, input json.RawMessage) Part {
	cp := make(json.RawMessage, len(input))
	copy(cp, input)
	return Part{
		Type:     PartToolCall,
		ToolName: toolName,
		CallID:   callID,
		Input:    cp,
		State:    StateInputStreaming,
	}
}

// NewToolResultPart creates a tool-result part in the output-available state.
func NewToolResultPart(callID string, output json.RawMessage) Part {
	cp := make(json.RawMessage, len(output))
	copy(cp, output)
	return Part{
		Type:   PartToolResult,
		CallID: callID,
		Output: cp,
		State:  StateOutputAvailable,
	}
}

// NewToolErrorPart creates a tool-result part carrying an error in the
// output-error state.
func NewToolErrorPart(callID, errorText string) Part {
	return Part{
		Type:      PartToolResult,
		CallID:    callID,
		ErrorText: errorText,
		State:     StateOutputError,
	}
}

// NewApprovalPart creates an approval part in the approval-requested state.
func NewApprovalPart(id string) Part {
	return Part{Type: PartApproval, ID: id, State: StateApprovalRequested}
}

// AdvanceState moves the part to next, enforcing monotonic transitions.
func (p *Part) AdvanceState(next PartState) error {
	if !ValidState(next) {
		return fmt.Errorf("%w: %q", ErrUnknownState, next)
	}
	if p.State.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, p.State)
	}
	if !p.State.CanAdvance(next) {
		return fmt.Errorf("%w: %s -> %s", ErrBackwardState, p.State, next)
	}
	p.State = next
	return nil
}

// Validate checks the structural invariants of the part.
func (p Part) Validate() error {
	if !ValidPartType(p.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownPartType, p.Type)
	}

	switch p.Type {
	case PartText, PartReasoning:
		// Content may be empty mid-stream; nothing further to check.
		return nil

	case PartToolCall:
		if p.ToolName == "" {
			return ErrMissingToolName
		}
		if p.CallID == "" {
			return ErrMissingCallID
		}

	case PartToolResult:
		if p.CallID == "" {
			return ErrMissingCallID
		}

	case PartApproval:
		if p.ID == "" {
			return ErrMissingApprovalID
		}
	}

	if p.State != "" && !ValidState(p.State) {
		return fmt.Errorf("%w: %q", ErrUnknownState, p.State)
	}
	return nil
}
