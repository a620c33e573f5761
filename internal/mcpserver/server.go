// Package mcpserver exposes the web tool registry over the Model Context
// Protocol, so editors and other MCP hosts can call scrapeWebsite and
// searchWeb directly. Transport is stdio; one process serves one host.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/probelab/webscout/internal/tool"
)

// Server bridges a tool.Registry to an MCP stdio server.
type Server struct {
	mcp      *server.MCPServer
	registry *tool.Registry
	logger   *slog.Logger
}

// New builds a server exposing every tool in reg. The tools keep their
// registry names and JSON Schemas on the MCP side.
func New(reg *tool.Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			"webscout",
			version,
			server.WithToolCapabilities(false),
		),
		registry: reg,
		logger:   logger,
	}

	for _, name := range reg.Names() {
		t, err := reg.Get(name)
		if err != nil {
			continue
		}
		s.mcp.AddTool(
			mcp.NewToolWithRawSchema(t.Name(), t.Description(), t.Schema()),
			s.handler(t),
		)
	}

	return s
}

// Serve runs the stdio transport until the host closes stdin.
func (s *Server) Serve() error {
	s.logger.Info("mcp server listening on stdio", "tools", s.registry.Names())
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// handler adapts one registry tool to the MCP call convention. Tool
// failures come back as error-shaped results, never protocol errors.
func (s *Server) handler(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		out, err := t.Execute(ctx, args)
		if err != nil {
			s.logger.Error("mcp tool invocation failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		if out.IsError {
			return mcp.NewToolResultError(out.Content), nil
		}
		return mcp.NewToolResultText(out.Content), nil
	}
}
