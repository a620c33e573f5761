package tool

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not found in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrDenied is returned when a tool execution is denied.
	ErrDenied = errors.New("tool execution denied")

	// ErrApprovalTimeout is returned when an approval request times out.
	ErrApprovalTimeout = errors.New("approval request timed out")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrNilSchema is returned when a tool declares no parameter schema.
	ErrNilSchema = errors.New("tool must declare a parameter schema")
)
