package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/probelab/webscout/internal/config"
	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/internal/mcpserver"
	"github.com/probelab/webscout/modules/tools/web"
	"github.com/probelab/webscout/pkg/app"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the web tools over MCP stdio",
		Long: "Exposes scrapeWebsite and searchWeb to MCP hosts on stdin/stdout.\n" +
			"Requires the tools.web module to be configured.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			node, ok := cfg.Modules["tools.web"]
			if !ok {
				return fmt.Errorf("mcp: tools.web module is not configured in %s", cfgPath)
			}

			// Stdout belongs to the MCP transport; logs go to stderr.
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))

			mod := &web.Module{}
			if err := mod.Configure(&node); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			appCtx := core.NewAppContext(logger, app.DefaultDataDir())
			if err := mod.Provision(appCtx); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			if err := mod.Validate(); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			return mcpserver.New(mod.Registry(), version, logger).Serve()
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
