package tool

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Schema is a tool's name paired with its JSON Schema, returned by Registry.Schemas.
type Schema struct {
	Name   string
	Schema json.RawMessage
}

// Registry holds registered tools and orchestrates their execution through
// the approval gate. It is instance-based (not global) for testability.
// Registration validates names and schemas so unknown or malformed tools
// fail fast instead of surfacing mid-conversation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. It returns ErrEmptyToolName,
// ErrNilSchema, or ErrDuplicateTool when the tool is malformed or already
// present.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}
	schema := t.Schema()
	if len(schema) == 0 {
		return fmt.Errorf("%w: %s", ErrNilSchema, name)
	}
	if !json.Valid(schema) {
		return fmt.Errorf("%w: %s (schema is not valid JSON)", ErrNilSchema, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = t
	return nil
}

// Get returns the tool with the given name, or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Schemas returns all registered tool schemas sorted by name.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]Schema, 0, len(r.tools))
	for name, t := range r.tools {
		schemas = append(schemas, Schema{
			Name:   name,
			Schema: t.Schema(),
		})
	}
	slices.SortFunc(schemas, func(a, b Schema) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return schemas
}

// Names returns all registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns the tool catalog in the form the provider expects.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	slices.SortFunc(defs, func(a, b Definition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return defs
}

// Definition mirrors the provider-facing tool description without
// importing the provider package from here.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Execute orchestrates tool execution: lookup, approval gate, run.
// requester may be nil when no tool asks for approval.
func (r *Registry) Execute(
	ctx context.Context,
	name string,
	args json.RawMessage,
	requester ApprovalRequester,
	approvalTimeout time.Duration,
) (Output, error) {
	t, err := r.Get(name)
	if err != nil {
		return Output{}, err
	}

	switch level := t.ApprovalPolicy(); level {
	case ApprovalDeny:
		return Output{}, fmt.Errorf("%w: %s", ErrDenied, name)

	case ApprovalAllow:
		return t.Execute(ctx, args)

	case ApprovalAsk:
		if requester == nil {
			return Output{}, fmt.Errorf("%w: %s (no approval requester)", ErrDenied, name)
		}

		pending := NewPendingApproval()
		resp, reqErr := pending.Begin(ctx, requester, ApprovalRequest{
			ID:          fmt.Sprintf("approve-%s-%d", name, time.Now().UnixNano()),
			ToolName:    name,
			Description: t.Description(),
			Arguments:   args,
		}, approvalTimeout)
		if reqErr != nil {
			return Output{}, reqErr
		}
		if !resp.Approved {
			return Output{}, fmt.Errorf("%w: %s (user denied: %s)", ErrDenied, name, resp.Reason)
		}
		return t.Execute(ctx, args)

	default:
		return Output{}, fmt.Errorf("%w: %s (unknown approval level: %s)", ErrDenied, name, level)
	}
}
