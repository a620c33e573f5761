package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeTool is a configurable test tool.
type fakeTool struct {
	name    string
	schema  string
	policy  ApprovalLevel
	execute func(ctx context.Context, args json.RawMessage) (Output, error)
}

func (f *fakeTool) Name() string                  { return f.name }
func (f *fakeTool) Description() string           { return "test tool " + f.name }
func (f *fakeTool) Schema() json.RawMessage       { return json.RawMessage(f.schema) }
func (f *fakeTool) ApprovalPolicy() ApprovalLevel { return f.policy }

func (f *fakeTool) Execute(ctx context.Context, args json.RawMessage) (Output, error) {
	if f.execute != nil {
		return f.execute(ctx, args)
	}
	return Output{Content: "ok"}, nil
}

func objSchema() string {
	return `{"type":"object","properties":{}}`
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		tool    *fakeTool
		wantErr error
	}{
		{"valid", &fakeTool{name: "searchWeb", schema: objSchema(), policy: ApprovalAllow}, nil},
		{"empty name", &fakeTool{name: "  ", schema: objSchema()}, ErrEmptyToolName},
		{"nil schema", &fakeTool{name: "x", schema: ""}, ErrNilSchema},
		{"invalid schema", &fakeTool{name: "x", schema: "{"}, ErrNilSchema},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			err := reg.Register(tc.tool)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(&fakeTool{name: "searchWeb", schema: objSchema()}); err != nil {
		t.Fatal(err)
	}
	err := reg.Register(&fakeTool{name: "searchWeb", schema: objSchema()})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestExecute_UnknownToolFailsFast(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	_, err := reg.Execute(context.Background(), "nonesuch", nil, nil, time.Second)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestExecute_ApprovalLevels(t *testing.T) {
	t.Parallel()

	t.Run("allow executes directly", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		if err := reg.Register(&fakeTool{name: "t", schema: objSchema(), policy: ApprovalAllow}); err != nil {
			t.Fatal(err)
		}
		out, err := reg.Execute(context.Background(), "t", nil, nil, time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Content != "ok" {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("deny never executes", func(t *testing.T) {
		t.Parallel()
		executed := false
		reg := NewRegistry()
		ft := &fakeTool{name: "t", schema: objSchema(), policy: ApprovalDeny}
		ft.execute = func(context.Context, json.RawMessage) (Output, error) {
			executed = true
			return Output{}, nil
		}
		if err := reg.Register(ft); err != nil {
			t.Fatal(err)
		}
		_, err := reg.Execute(context.Background(), "t", nil, nil, time.Second)
		if !errors.Is(err, ErrDenied) {
			t.Fatalf("expected ErrDenied, got %v", err)
		}
		if executed {
			t.Error("denied tool must not execute")
		}
	})

	t.Run("ask without requester is denied", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		if err := reg.Register(&fakeTool{name: "t", schema: objSchema(), policy: ApprovalAsk}); err != nil {
			t.Fatal(err)
		}
		_, err := reg.Execute(context.Background(), "t", nil, nil, time.Second)
		if !errors.Is(err, ErrDenied) {
			t.Errorf("expected ErrDenied, got %v", err)
		}
	})

	t.Run("ask with approving requester executes", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		if err := reg.Register(&fakeTool{name: "t", schema: objSchema(), policy: ApprovalAsk}); err != nil {
			t.Fatal(err)
		}
		out, err := reg.Execute(context.Background(), "t", nil, approverFunc(true, "fine"), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Content != "ok" {
			t.Errorf("unexpected output: %+v", out)
		}
	})

	t.Run("ask with denying requester is denied", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		if err := reg.Register(&fakeTool{name: "t", schema: objSchema(), policy: ApprovalAsk}); err != nil {
			t.Fatal(err)
		}
		_, err := reg.Execute(context.Background(), "t", nil, approverFunc(false, "nope"), time.Second)
		if !errors.Is(err, ErrDenied) {
			t.Errorf("expected ErrDenied, got %v", err)
		}
	})
}

// approverFunc returns an ApprovalRequester with a fixed answer.
func approverFunc(approved bool, reason string) ApprovalRequester {
	return requesterFunc(func(_ context.Context, _ ApprovalRequest) (ApprovalResponse, error) {
		return ApprovalResponse{Approved: approved, Reason: reason}, nil
	})
}

type requesterFunc func(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error)

func (f requesterFunc) RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error) {
	return f(ctx, req)
}

func TestWithApproval(t *testing.T) {
	t.Parallel()

	base := &fakeTool{name: "t", schema: objSchema(), policy: ApprovalAllow}
	gated := WithApproval(base, ApprovalAsk)

	if got := gated.ApprovalPolicy(); got != ApprovalAsk {
		t.Errorf("ApprovalPolicy() = %q, want ask", got)
	}
	if gated.Name() != "t" || string(gated.Schema()) != objSchema() {
		t.Error("override must not change the tool's identity")
	}

	// The registry applies the override's gate, not the tool's own.
	reg := NewRegistry()
	if err := reg.Register(gated); err != nil {
		t.Fatal(err)
	}
	approve := requesterFunc(func(ctx context.Context, req ApprovalRequest) (ApprovalResponse, error) {
		return ApprovalResponse{Approved: true}, nil
	})
	out, err := reg.Execute(context.Background(), "t", nil, approve, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "ok" {
		t.Errorf("unexpected output: %+v", out)
	}

	_, err = reg.Execute(context.Background(), "t", nil, nil, time.Second)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("ask gate without requester: got %v, want ErrDenied", err)
	}
}

func TestValidApprovalLevel(t *testing.T) {
	t.Parallel()

	for _, level := range []ApprovalLevel{ApprovalAllow, ApprovalAsk, ApprovalDeny} {
		if !ValidApprovalLevel(level) {
			t.Errorf("ValidApprovalLevel(%q) = false", level)
		}
	}
	if ValidApprovalLevel("sometimes") {
		t.Error(`ValidApprovalLevel("sometimes") = true`)
	}
}

func TestSchemasAndNamesSorted(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, n := range []string{"searchWeb", "scrapeWebsite"} {
		if err := reg.Register(&fakeTool{name: n, schema: objSchema()}); err != nil {
			t.Fatal(err)
		}
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "scrapeWebsite" || names[1] != "searchWeb" {
		t.Errorf("unexpected names: %v", names)
	}

	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "scrapeWebsite" {
		t.Errorf("unexpected definitions: %+v", defs)
	}
	if defs[0].Description == "" || len(defs[0].Parameters) == 0 {
		t.Errorf("definition missing fields: %+v", defs[0])
	}
}

func TestPendingApproval_Timeout(t *testing.T) {
	t.Parallel()

	blocker := requesterFunc(func(ctx context.Context, _ ApprovalRequest) (ApprovalResponse, error) {
		<-ctx.Done()
		return ApprovalResponse{}, ctx.Err()
	})

	pending := NewPendingApproval()
	resp, err := pending.Begin(context.Background(), blocker, ApprovalRequest{ID: "a1", ToolName: "t"}, 20*time.Millisecond)
	if !errors.Is(err, ErrApprovalTimeout) {
		t.Fatalf("expected ErrApprovalTimeout, got %v", err)
	}
	if resp.Approved {
		t.Error("timeout must deny by default")
	}
	if pending.State() != StateIdle && pending.State() != StateTimeout {
		t.Errorf("unexpected state: %v", pending.State())
	}
}
