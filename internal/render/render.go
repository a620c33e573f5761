// Package render turns chat messages and streamed agent events into
// terminal output for the webscout chat client.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/probelab/webscout/internal/report"
	"github.com/probelab/webscout/internal/stream"
	"github.com/probelab/webscout/pkg/message"
)

// Message writes one stored message to w: parts grouped by type, reasoning
// collapsed behind a disclosure marker, tool activity shown with its state.
func Message(w io.Writer, msg message.Message) {
	fmt.Fprintf(w, "[%s]\n", msg.Role)

	var texts, reasonings, toolParts []message.Part
	for _, p := range msg.Parts {
		switch p.Type {
		case message.PartText:
			texts = append(texts, p)
		case message.PartReasoning:
			reasonings = append(reasonings, p)
		default:
			toolParts = append(toolParts, p)
		}
	}

	for _, p := range reasonings {
		fmt.Fprintf(w, "  ▸ reasoning (%d chars, collapsed)\n", len(p.Content))
	}
	for _, p := range toolParts {
		renderToolPart(w, p)
	}
	for _, p := range texts {
		text := strings.TrimSpace(p.Content)
		if text == "" {
			continue
		}
		if report.Detect(text) {
			var res report.StructuredResult
			if err := json.Unmarshal([]byte(text), &res); err == nil {
				Result(w, res)
				continue
			}
		}
		fmt.Fprintf(w, "  %s\n", indentContinuation(text))
	}
}

func renderToolPart(w io.Writer, p message.Part) {
	switch p.Type {
	case message.PartToolCall:
		switch p.State {
		case message.StateApprovalRequested:
			fmt.Fprintf(w, "  ⚠ %s awaiting approval  input: %s\n", p.ToolName, compactJSON(p.Input))
		case message.StateOutputDenied:
			fmt.Fprintf(w, "  ✗ %s denied\n", p.ToolName)
		case message.StateOutputError:
			fmt.Fprintf(w, "  ✗ %s failed: %s\n", p.ToolName, p.ErrorText)
		case message.StateOutputAvailable:
			fmt.Fprintf(w, "  ✓ %s  input: %s\n", p.ToolName, compactJSON(p.Input))
		default:
			fmt.Fprintf(w, "  … %s (%s)\n", p.ToolName, p.State)
		}
	case message.PartToolResult:
		if p.ErrorText != "" {
			fmt.Fprintf(w, "    → error: %s\n", p.ErrorText)
			return
		}
		fmt.Fprintf(w, "    → %s\n", truncate(compactJSON(p.Output), 200))
	case message.PartApproval:
		fmt.Fprintf(w, "  ⚠ approval %s (%s)\n", p.ID, p.State)
	}
}

// compactJSON renders raw JSON on one line, falling back to the raw bytes
// when the input is not valid JSON.
func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func indentContinuation(s string) string {
	return strings.ReplaceAll(s, "\n", "\n  ")
}

// Streamer renders a live event stream. Text deltas are echoed as they
// arrive unless the turn's answer looks like the structured JSON contract,
// in which case the raw JSON is held back and the finish event's validated
// result is rendered as a formatted block instead.
type Streamer struct {
	w    io.Writer
	text strings.Builder

	// echoing is set once the buffered text is known not to be JSON.
	echoing bool
	flushed int

	// reasoned dedupes the reasoning marker between tool calls.
	reasoned bool
}

// NewStreamer creates a renderer writing to w.
func NewStreamer(w io.Writer) *Streamer {
	return &Streamer{w: w}
}

// Event consumes one wire event. Unknown event names are ignored.
func (s *Streamer) Event(name string, p stream.EventPayload) {
	switch name {
	case "text":
		s.text.WriteString(p.Content)
		s.flushText(false)
	case "reasoning":
		// Collapsed: note that reasoning happened without echoing it.
		if p.Content != "" && !s.reasoned {
			fmt.Fprintf(s.w, "▸ reasoning…\n")
			s.reasoned = true
		}
	case "step":
		// Step boundaries are invisible in normal rendering.
	case "tool_start":
		s.reasoned = false
		fmt.Fprintf(s.w, "… %s %s\n", p.Tool, truncate(compactJSON(p.Args), 120))
	case "approval_requested":
		fmt.Fprintf(s.w, "⚠ %s requires approval\n", p.Tool)
	case "approval_responded":
		if p.Approved != nil && *p.Approved {
			fmt.Fprintf(s.w, "✓ %s approved\n", p.Tool)
		} else {
			fmt.Fprintf(s.w, "✗ %s denied\n", p.Tool)
		}
	case "tool_end":
		if p.IsError {
			fmt.Fprintf(s.w, "✗ %s: %s\n", p.Tool, truncate(p.Output, 200))
			return
		}
		fmt.Fprintf(s.w, "✓ %s → %s\n", p.Tool, truncate(p.Output, 200))
	case "usage":
		if p.Usage != nil {
			fmt.Fprintf(s.w, "· %d tokens\n", p.Usage.TotalTokens)
		}
	case "error":
		fmt.Fprintf(s.w, "error: %s\n", p.Error)
	case "finish":
		s.finish(p)
	}
}

// flushText echoes buffered text once it is clear the answer is prose.
// A buffer whose first non-space byte is '{' is held for the finish event.
func (s *Streamer) flushText(force bool) {
	buf := s.text.String()
	if !s.echoing {
		trimmed := strings.TrimLeft(buf, " \t\r\n")
		if trimmed == "" {
			return
		}
		if strings.HasPrefix(trimmed, "{") && !force {
			return
		}
		s.echoing = true
	}
	if s.flushed < len(buf) {
		fmt.Fprint(s.w, buf[s.flushed:])
		s.flushed = len(buf)
	}
}

func (s *Streamer) finish(p stream.EventPayload) {
	if len(p.Final) > 0 {
		var res report.StructuredResult
		if err := json.Unmarshal(p.Final, &res); err == nil {
			if s.echoing && s.flushed > 0 {
				fmt.Fprintln(s.w)
			}
			Result(s.w, res)
			s.printStop(p.StopWhy)
			return
		}
	}

	// No structured result on the wire: emit whatever text we held back.
	s.flushText(true)
	if s.flushed > 0 {
		fmt.Fprintln(s.w)
	}
	s.printStop(p.StopWhy)
}

func (s *Streamer) printStop(why string) {
	if why != "" && why != "complete" {
		fmt.Fprintf(s.w, "(stopped: %s)\n", why)
	}
}
