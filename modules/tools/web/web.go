// Package web is the tools module: it builds the scrape/search backend
// client and registers a tool registry for the agent loop to use.
package web

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/tool"
	"github.com/probelab/webscout/internal/webdata"
	"github.com/probelab/webscout/internal/webtool"
)

func init() {
	core.RegisterModule(&Module{})
}

// Module wires the web research tools into the service registry.
type Module struct {
	config Config
	logger *slog.Logger

	client   *webdata.Client
	registry *tool.Registry
}

// Config holds the tools module configuration. The backend section is
// passed through to the webdata client; its api_key is optional, and when
// it is empty both tools degrade to placeholder payloads instead of
// calling out. Approval maps tool names to an approval level override
// (allow, ask, deny).
type Config struct {
	Backend  webdata.Config                `yaml:"backend"`
	Approval map[string]tool.ApprovalLevel `yaml:"approval"`
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "tools.web",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	for name, level := range m.config.Approval {
		if !tool.ValidApprovalLevel(level) {
			return fmt.Errorf("tools.web: approval level for %s must be allow, ask, or deny, got %q", name, level)
		}
	}
	return nil
}

// Provision implements core.Provisioner. It builds the backend client,
// registers both tools, and publishes the registry for the gateway. A
// missing backend credential is not an error: the tools register with a
// nil client and answer with placeholder payloads.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	if m.config.Backend.APIKey == "" {
		m.logger.Warn("no backend api_key configured, web tools will return placeholder payloads")
	} else {
		client, err := webdata.New(m.config.Backend, m.logger)
		if err != nil {
			return err
		}
		m.client = client
		ctx.RegisterService("webdata.client", client)
	}

	m.registry = tool.NewRegistry()
	tools := []tool.Tool{
		webtool.NewScrapeTool(m.client, m.logger),
		webtool.NewSearchTool(m.client, m.logger),
	}
	for _, t := range tools {
		if level, ok := m.config.Approval[t.Name()]; ok {
			t = tool.WithApproval(t, level)
		}
		if err := m.registry.Register(t); err != nil {
			return err
		}
	}

	ctx.RegisterService("tool.registry", m.registry)

	m.logger.Info("web tools registered", "tools", m.registry.Names())
	return nil
}

// Registry exposes the tool registry, mainly for the MCP server command.
func (m *Module) Registry() *tool.Registry {
	return m.registry
}
