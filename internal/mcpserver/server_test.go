package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/probelab/webscout/internal/tool"
)

type stubTool struct {
	name   string
	out    tool.Output
	err    error
	gotArg json.RawMessage
}

func (s *stubTool) Name() string                      { return s.name }
func (s *stubTool) Description() string               { return "stub tool" }
func (s *stubTool) Schema() json.RawMessage           { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) ApprovalPolicy() tool.ApprovalLevel { return tool.ApprovalAllow }

func (s *stubTool) Execute(_ context.Context, args json.RawMessage) (tool.Output, error) {
	s.gotArg = args
	return s.out, s.err
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("want 1 content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestHandler_ForwardsArgumentsAndOutput(t *testing.T) {
	t.Parallel()

	st := &stubTool{name: "searchWeb", out: tool.Output{Content: `{"count":2}`}}
	reg := tool.NewRegistry()
	if err := reg.Register(st); err != nil {
		t.Fatal(err)
	}
	s := New(reg, "test", nil)

	res, err := s.handler(st)(context.Background(), callReq(map[string]any{"query": "go releases"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Errorf("unexpected error result: %s", textOf(t, res))
	}
	if got := textOf(t, res); got != `{"count":2}` {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(string(st.gotArg), "go releases") {
		t.Errorf("arguments not forwarded: %s", st.gotArg)
	}
}

func TestHandler_ErrorShapedOutput(t *testing.T) {
	t.Parallel()

	st := &stubTool{name: "scrapeWebsite", out: tool.Errorf("fetch failed")}
	reg := tool.NewRegistry()
	if err := reg.Register(st); err != nil {
		t.Fatal(err)
	}
	s := New(reg, "test", nil)

	res, err := s.handler(st)(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
	if got := textOf(t, res); got != "fetch failed" {
		t.Errorf("got %q", got)
	}
}

func TestHandler_InvocationErrorIsResultNotProtocolError(t *testing.T) {
	t.Parallel()

	st := &stubTool{name: "searchWeb", err: errors.New("not invocable")}
	reg := tool.NewRegistry()
	if err := reg.Register(st); err != nil {
		t.Fatal(err)
	}
	s := New(reg, "test", nil)

	res, err := s.handler(st)(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("handler must not surface protocol errors, got %v", err)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestNew_RegistersAllTools(t *testing.T) {
	t.Parallel()

	reg := tool.NewRegistry()
	for _, name := range []string{"scrapeWebsite", "searchWeb"} {
		if err := reg.Register(&stubTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}

	s := New(reg, "test", nil)
	if s.mcp == nil {
		t.Fatal("mcp server not built")
	}
	if got := len(s.registry.Names()); got != 2 {
		t.Errorf("want 2 tools, got %d", got)
	}
}
