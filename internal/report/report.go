// Package report defines the structured final-answer contract the agent is
// asked to produce: a completion status, a list of findings with sourcing
// and confidence, the search strategies used, and a next-step hint. It also
// provides the cross-field validation the model's output must satisfy.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TaskStatus describes the overall outcome of a research task.
type TaskStatus string

// TaskStatus values.
const (
	StatusCompleted        TaskStatus = "completed"
	StatusPartial          TaskStatus = "partial"
	StatusNotFound         TaskStatus = "not_found"
	StatusInsufficientData TaskStatus = "insufficient_data"
)

// Confidence grades how well-supported a finding is.
type Confidence string

// Confidence values.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Source identifies where a finding was observed.
type Source struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// Finding is one verified unit of information extracted by the agent.
// Details is intentionally open-ended: string keys, loosely-typed values.
type Finding struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	LaunchDate string         `json:"launchDate,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Confidence Confidence     `json:"confidence"`
	Sources    []Source       `json:"sources"`
}

// StructuredResult is the agent's schema-constrained final answer.
type StructuredResult struct {
	TaskCompleted    bool       `json:"taskCompleted"`
	TaskStatus       TaskStatus `json:"taskStatus"`
	Message          string     `json:"message"`
	Findings         []Finding  `json:"findings"`
	SearchStrategies []string   `json:"searchStrategies"`
	NextSteps        *string    `json:"nextSteps"`
}

// Validation errors for the structured result contract.
var (
	ErrStatusUnknown        = errors.New("report: unknown task status")
	ErrCompletedNoFindings  = errors.New("report: taskCompleted requires at least one finding")
	ErrFindingsNotCompleted = errors.New("report: findings present but task not completed")
	ErrStatusMismatch       = errors.New("report: taskStatus inconsistent with taskCompleted")
	ErrConfidenceUnknown    = errors.New("report: unknown confidence level")
	ErrSourceMissingURL     = errors.New("report: finding source requires a url")
	ErrTrailingData         = errors.New("report: trailing data after result")
)

// Validate enforces the cross-field consistency rules:
//
//	taskCompleted == true  ⇔ len(findings) ≥ 1
//	taskStatus == completed ⇔ taskCompleted == true
//	any other taskStatus    ⇒ findings == []
func (r StructuredResult) Validate() error {
	switch r.TaskStatus {
	case StatusCompleted, StatusPartial, StatusNotFound, StatusInsufficientData:
	default:
		return fmt.Errorf("%w: %q", ErrStatusUnknown, r.TaskStatus)
	}

	if r.TaskCompleted && len(r.Findings) == 0 {
		return ErrCompletedNoFindings
	}
	if !r.TaskCompleted && len(r.Findings) > 0 {
		return ErrFindingsNotCompleted
	}
	if (r.TaskStatus == StatusCompleted) != r.TaskCompleted {
		return fmt.Errorf("%w: status=%s completed=%v", ErrStatusMismatch, r.TaskStatus, r.TaskCompleted)
	}

	for i, f := range r.Findings {
		switch f.Confidence {
		case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		default:
			return fmt.Errorf("finding %d: %w: %q", i, ErrConfidenceUnknown, f.Confidence)
		}
		for j, s := range f.Sources {
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("finding %d source %d: %w", i, j, ErrSourceMissingURL)
			}
		}
	}
	return nil
}

// Parse decodes text as a StructuredResult and validates it.
func Parse(text string) (StructuredResult, error) {
	var r StructuredResult
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&r); err != nil {
		return StructuredResult{}, fmt.Errorf("report: decode: %w", err)
	}
	// A Decoder stops at the end of the first value, so "{...}garbage"
	// would otherwise pass.
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return StructuredResult{}, fmt.Errorf("report: decode: %w", ErrTrailingData)
	}
	if err := r.Validate(); err != nil {
		return StructuredResult{}, err
	}
	return r, nil
}

// Detect reports whether text looks like a serialized StructuredResult.
// The discriminator is the presence of a top-level taskCompleted field;
// renderers use this to show a formatted block instead of prose.
func Detect(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return false
	}
	_, ok := probe["taskCompleted"]
	return ok
}

// Incomplete builds a valid non-completed result, used when the loop must
// terminate without a usable model answer (step ceiling, hard failure).
func Incomplete(status TaskStatus, msg string, strategies []string) StructuredResult {
	if status == StatusCompleted {
		status = StatusPartial
	}
	return StructuredResult{
		TaskCompleted:    false,
		TaskStatus:       status,
		Message:          msg,
		Findings:         []Finding{},
		SearchStrategies: strategies,
	}
}
