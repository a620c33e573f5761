package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/probelab/webscout/internal/agent"
)

// ErrNoFlusher is returned when the response writer cannot stream.
var ErrNoFlusher = errors.New("stream: response writer does not support flushing")

// SSEWriter encodes agent events as server-sent events. Not safe for
// concurrent use; one writer serves one response.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares w for server-sent events and returns a writer.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlusher
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one event with a JSON-encoded payload and flushes.
func (s *SSEWriter) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("stream: encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// SendEvent encodes one agent stream event using its type as the SSE
// event name.
func (s *SSEWriter) SendEvent(ev agent.StreamEvent) error {
	return s.Send(string(ev.Type), EncodeEvent(ev))
}

// EventPayload is the wire shape of a streamed agent event.
type EventPayload struct {
	Content  string          `json:"content,omitempty"`
	Step     int             `json:"step,omitempty"`
	Tool     string          `json:"tool,omitempty"`
	CallID   string          `json:"callId,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Output   string          `json:"output,omitempty"`
	IsError  bool            `json:"isError,omitempty"`
	Approved *bool           `json:"approved,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Usage    *UsagePayload   `json:"usage,omitempty"`
	Error    string          `json:"error,omitempty"`
	Final    json.RawMessage `json:"final,omitempty"`
	StopWhy  string          `json:"stopReason,omitempty"`
}

// UsagePayload mirrors token usage on the wire.
type UsagePayload struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// EncodeEvent maps an agent event to its wire payload.
func EncodeEvent(ev agent.StreamEvent) EventPayload {
	p := EventPayload{
		Content: ev.Content,
		Step:    ev.Step,
	}
	if ev.ToolCall != nil {
		p.Tool = ev.ToolCall.Name
		p.CallID = ev.ToolCall.ID
		p.Args = ev.ToolCall.Arguments
		p.Output = ev.ToolCall.Output.Content
		p.IsError = ev.ToolCall.Output.IsError
	}
	if ev.Approval != nil {
		approved := ev.Approval.Approved
		p.Approved = &approved
		p.Reason = ev.Approval.Reason
	}
	if ev.Usage != nil {
		p.Usage = &UsagePayload{
			PromptTokens:     ev.Usage.PromptTokens,
			CompletionTokens: ev.Usage.CompletionTokens,
			TotalTokens:      ev.Usage.TotalTokens,
		}
	}
	if ev.Err != nil {
		p.Error = ev.Err.Error()
	}
	if ev.Final != nil {
		p.StopWhy = string(ev.Final.StopReason)
		if data, err := json.Marshal(ev.Final.Result); err == nil {
			p.Final = data
		}
	}
	return p
}
