// Package message defines the wire contract between chat clients and the
// gateway: messages composed of typed parts (text, reasoning, tool calls,
// tool results, approvals) with a per-part lifecycle state.
package message

// Role identifies the author of a message in a conversation.
type Role string

// Role values for conversation messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ValidRole reports whether r is a known message role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// PartType discriminates the variant stored in a Part.
type PartType string

// Supported part types.
const (
	PartText       PartType = "text"
	PartReasoning  PartType = "reasoning"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
	PartApproval   PartType = "approval"
)

// ValidPartType reports whether t is a known part type.
func ValidPartType(t PartType) bool {
	switch t {
	case PartText, PartReasoning, PartToolCall, PartToolResult, PartApproval:
		return true
	}
	return false
}

// PartState tracks the lifecycle of a stateful part (tool calls and
// approvals). Transitions are monotonic: a part never moves backward.
type PartState string

// PartState values, in lifecycle order.
const (
	StateInputStreaming    PartState = "input-streaming"
	StateInputAvailable    PartState = "input-available"
	StateApprovalRequested PartState = "approval-requested"
	StateApprovalResponded PartState = "approval-responded"
	StateOutputAvailable   PartState = "output-available"
	StateOutputError       PartState = "output-error"
	StateOutputDenied      PartState = "output-denied"
)

// stateRank orders states for monotonicity checks. Terminal states share
// the highest rank; moving between two terminal states is not allowed.
var stateRank = map[PartState]int{
	StateInputStreaming:    0,
	StateInputAvailable:    1,
	StateApprovalRequested: 2,
	StateApprovalResponded: 3,
	StateOutputAvailable:   4,
	StateOutputError:       4,
	StateOutputDenied:      4,
}

// ValidState reports whether s is a known part state.
func ValidState(s PartState) bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether s is a terminal part state.
func (s PartState) Terminal() bool {
	return stateRank[s] == 4 && ValidState(s)
}

// CanAdvance reports whether a part may move from s to next.
// Forward-only; terminal states accept no further transitions.
func (s PartState) CanAdvance(next PartState) bool {
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	if !ok {
		return false
	}
	if s.Terminal() {
		return false
	}
	return to > from
}
