// Package tool defines the tool interface, execution model, and approval
// system. Tools are the unit of agent capability: every external action the
// reasoning loop takes goes through a registered tool, and a tool never
// lets a failure escape its own boundary — errors come back as data.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// ApprovalLevel is the gate applied before a tool executes.
type ApprovalLevel string

// ApprovalLevel values.
const (
	ApprovalAllow ApprovalLevel = "allow"
	ApprovalAsk   ApprovalLevel = "ask"
	ApprovalDeny  ApprovalLevel = "deny"
)

// Tool is the interface all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool
	// does. It is consumed by the model's tool-selection policy.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// ApprovalPolicy returns the gate applied before execution when no
	// explicit override is configured.
	ApprovalPolicy() ApprovalLevel

	// Execute runs the tool with schema-validated arguments. It must
	// convert every internal failure into an error-shaped Output rather
	// than returning a non-nil error; a returned error means the tool
	// itself could not be invoked, not that the work failed.
	Execute(ctx context.Context, args json.RawMessage) (Output, error)
}

// ValidApprovalLevel reports whether level is a known approval level.
func ValidApprovalLevel(level ApprovalLevel) bool {
	switch level {
	case ApprovalAllow, ApprovalAsk, ApprovalDeny:
		return true
	}
	return false
}

// policyOverride swaps a tool's declared approval level for a configured
// one without touching its behavior.
type policyOverride struct {
	Tool
	level ApprovalLevel
}

func (p policyOverride) ApprovalPolicy() ApprovalLevel { return p.level }

// WithApproval returns t with its approval policy replaced by level.
// Registries see the override; the tool's own Execute is untouched.
func WithApproval(t Tool, level ApprovalLevel) Tool {
	return policyOverride{Tool: t, level: level}
}

// Output is the result of a tool execution.
type Output struct {
	// Content is the output text from the tool, usually JSON.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}

// Errorf builds an error-shaped Output from a format string.
func Errorf(format string, args ...any) Output {
	return Output{Content: fmt.Sprintf(format, args...), IsError: true}
}
