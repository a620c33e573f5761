package gateway

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/provider/providertest"
	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/transcript"
)

// completedAnswer is a contract-valid final answer for streaming tests.
const completedAnswer = `{
	"taskCompleted": true,
	"taskStatus": "completed",
	"message": "done",
	"findings": [{
		"name": "Widget",
		"type": "product",
		"confidence": "high",
		"sources": [{"title": "t", "url": "https://example.com"}]
	}],
	"searchStrategies": []
}`

// answeringProvider returns a mock whose every stream yields one
// contract-valid final answer.
func answeringProvider() *providertest.MockProvider {
	return &providertest.MockProvider{
		StreamFunc: func(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
			ch := make(chan provider.StreamChunk, 1)
			ch <- provider.StreamChunk{Content: completedAnswer}
			close(ch)
			return ch, nil
		},
	}
}

// testServices bundles the optional services registered before Start.
type testServices struct {
	provider provider.Provider
	store    transcript.Store
	tools    *tool.Registry
}

// newTestGateway provisions and starts a gateway on addr with the given
// services registered. The gateway is stopped on test cleanup.
func newTestGateway(t *testing.T, addr string, auth AuthConfig, svcs testServices) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())

	if svcs.provider != nil {
		appCtx.RegisterService("provider.llm", svcs.provider)
	}
	if svcs.store != nil {
		appCtx.RegisterService("transcript.store", svcs.store)
	}
	if svcs.tools != nil {
		appCtx.RegisterService("tool.registry", svcs.tools)
	}

	g := &Gateway{}
	g.config = Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
		Agent:           AgentConfig{MaxSteps: 3, Timeout: 10 * time.Second},
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := g.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return g
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, url, "", "")
}

// doGetWithBearer makes a GET request with a bearer token.
func doGetWithBearer(t *testing.T, url, token string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, url, token, "")
}

// doRequest makes an HTTP request with optional bearer token and body.
func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

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
