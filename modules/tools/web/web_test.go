package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/tool"
)

func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}

func TestModuleInfo(t *testing.T) {
	t.Parallel()

	m := &Module{}
	info := m.ModuleInfo()

	if info.ID != "tools.web" {
		t.Errorf("ID = %q, want tools.web", info.ID)
	}
	if _, ok := info.New().(*Module); !ok {
		t.Error("New() should return *Module")
	}
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	m := &Module{}
	node := mustYAMLNode(t, `
backend:
  api_key: "fc-test"
  base_url: "http://localhost:9999"
  cache_size: 16
`)
	if err := m.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if m.config.Backend.APIKey != "fc-test" {
		t.Errorf("APIKey = %q", m.config.Backend.APIKey)
	}
	if m.config.Backend.CacheSize != 16 {
		t.Errorf("CacheSize = %d", m.config.Backend.CacheSize)
	}
}

func TestValidateApprovalLevels(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate with no approval config: %v", err)
	}

	m.config.Approval = map[string]tool.ApprovalLevel{"scrapeWebsite": "ask"}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	m.config.Approval["searchWeb"] = "sometimes"
	if err := m.Validate(); err == nil {
		t.Error("Validate() accepted unknown approval level")
	}
}

// A missing backend credential must not fail the module: both tools
// register and answer with placeholder payloads.
func TestProvisionWithoutKeyDegrades(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	m := &Module{}
	node := mustYAMLNode(t, `
backend: {}
`)
	if err := m.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, ok := appCtx.Service("webdata.client"); ok {
		t.Error("webdata.client registered despite missing credential")
	}

	names := m.registry.Names()
	for _, want := range []string{"scrapeWebsite", "searchWeb"} {
		if !slices.Contains(names, want) {
			t.Errorf("registry missing %q, have %v", want, names)
		}
	}

	out, err := m.registry.Execute(context.Background(), "searchWeb",
		json.RawMessage(`{"query": "acme widgets"}`), nil, time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError {
		t.Errorf("degraded search returned error output: %s", out.Content)
	}
	if !strings.Contains(out.Content, "not configured") {
		t.Errorf("degraded search output missing placeholder note: %s", out.Content)
	}
}

func TestProvisionAppliesApprovalOverrides(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	m := &Module{}
	m.config.Backend.APIKey = "fc-test"
	m.config.Approval = map[string]tool.ApprovalLevel{"scrapeWebsite": tool.ApprovalAsk}

	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	scrape, err := m.registry.Get("scrapeWebsite")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := scrape.ApprovalPolicy(); got != tool.ApprovalAsk {
		t.Errorf("scrapeWebsite policy = %q, want ask", got)
	}

	search, err := m.registry.Get("searchWeb")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := search.ApprovalPolicy(); got != tool.ApprovalAllow {
		t.Errorf("searchWeb policy = %q, want allow", got)
	}
}

func TestProvisionRegistersServices(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	m := &Module{}
	m.config.Backend.APIKey = "fc-test"

	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	svc, ok := appCtx.Service("tool.registry")
	if !ok {
		t.Fatal("tool.registry not registered")
	}
	registry, ok := svc.(*tool.Registry)
	if !ok {
		t.Fatalf("tool.registry has type %T", svc)
	}

	names := registry.Names()
	for _, want := range []string{"scrapeWebsite", "searchWeb"} {
		if !slices.Contains(names, want) {
			t.Errorf("registry missing %q, have %v", want, names)
		}
	}

	if _, ok := appCtx.Service("webdata.client"); !ok {
		t.Error("webdata.client not registered")
	}
}
