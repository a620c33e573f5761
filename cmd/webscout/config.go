package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/probelab/webscout/internal/config"
	"github.com/probelab/webscout/internal/core"
	"github.com/probelab/webscout/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			appCtx := core.NewAppContext(logger, app.DefaultDataDir())
			appCtx = appCtx.WithModuleConfigs(cfg.Modules)

			application := core.NewApp(appCtx)
			ids := config.Resolve(cfg)
			if err := application.LoadModules(ids); err != nil {
				return err
			}
			defer application.Stop()

			fmt.Printf("Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				path = app.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config init: %s already exists", path)
			}

			answers := initAnswers{
				ProviderModule: "provider.anthropic",
				KeyEnv:         "ANTHROPIC_API_KEY",
				Bind:           "127.0.0.1:8080",
			}
			if err := initForm(&answers).Run(); err != nil {
				return err
			}

			content := renderConfig(answers)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", path)
			fmt.Println("Set the referenced environment variables, then run: webscout start")
			return nil
		},
	}
	cmd.Flags().String("path", "", "Where to write the config file")
	return cmd
}

// initAnswers collects the interactive form results.
type initAnswers struct {
	ProviderModule string
	Model          string
	KeyEnv         string
	SearchKeyEnv   string
	Bind           string
	Persist        bool
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model provider").
				Options(
					huh.NewOption("Anthropic", "provider.anthropic"),
					huh.NewOption("OpenAI-compatible endpoint", "provider.openai_compatible"),
				).
				Value(&a.ProviderModule),
			huh.NewInput().
				Title("Model name").
				Placeholder("leave empty for the provider default").
				Value(&a.Model),
			huh.NewInput().
				Title("Environment variable holding the provider API key").
				Value(&a.KeyEnv),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Environment variable holding the web search API key").
				Description("Leave empty to run without the web tools").
				Value(&a.SearchKeyEnv),
			huh.NewInput().
				Title("Gateway bind address").
				Value(&a.Bind),
			huh.NewConfirm().
				Title("Persist session transcripts to SQLite?").
				Value(&a.Persist),
		),
	)
}

// renderConfig produces the YAML for the chosen options. Secrets stay in
// the environment; the file only references them via ${VAR} expansion.
func renderConfig(a initAnswers) string {
	out := "version: \"1\"\n\nmodules:\n"

	out += fmt.Sprintf("  %s:\n", a.ProviderModule)
	if a.Model != "" {
		out += fmt.Sprintf("    model: %s\n", a.Model)
	}
	out += fmt.Sprintf("    api_key_env: %s\n", a.KeyEnv)

	if a.SearchKeyEnv != "" {
		out += "  tools.web:\n"
		out += "    backend:\n"
		out += fmt.Sprintf("      api_key: ${%s}\n", a.SearchKeyEnv)
	}

	if a.Persist {
		out += "  transcript.sqlite:\n"
		out += "    retention:\n"
		out += "      max_age: 720h\n"
	}

	out += "  gateway.http:\n"
	out += fmt.Sprintf("    bind: %s\n", a.Bind)

	return out
}
