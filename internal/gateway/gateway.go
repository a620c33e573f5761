// Package gateway provides the HTTP surface of the research service: the
// chat endpoints (SSE and WebSocket), health and metrics, and bearer-auth
// admin endpoints for session management. It binds to loopback by default
// and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/provider"
	"github.com/probelab/webscout/internal/research"
	"github.com/probelab/webscout/internal/stream"
	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/transcript"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module — nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	registry  *prometheus.Registry
	metrics   *stream.Metrics
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	research *research.Service
	store    transcript.Store
	model    provider.Provider
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.registry = prometheus.NewRegistry()
	g.metrics = stream.NewMetrics(g.registry)

	// Register services for cross-module discovery.
	ctx.RegisterService("gateway.metrics", g.metrics)

	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	// Resolve optional services — graceful degradation if missing.
	if svc, ok := g.appCtx.Service("transcript.store"); ok {
		if store, ok := svc.(transcript.Store); ok {
			g.store = store
		}
	}
	if svc, ok := g.appCtx.Service("provider.llm"); ok {
		if model, ok := svc.(provider.Provider); ok {
			g.model = model
		}
	}

	var tools *tool.Registry
	if svc, ok := g.appCtx.Service("tool.registry"); ok {
		if reg, ok := svc.(*tool.Registry); ok {
			tools = reg
		}
	}

	if g.model == nil {
		g.logger.Warn("no model provider registered, chat endpoints disabled")
	} else {
		g.research = research.NewService(research.Config{
			Provider: g.model,
			Registry: tools,
			Store:    g.store,
			Metrics:  g.metrics,
			Logger:   g.logger,
			Loop:     g.config.Agent.loopConfig(),
		})
		if g.store == nil {
			g.store = g.research.Store()
		}
	}

	g.startedAt = time.Now()

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
