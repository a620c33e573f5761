package anthropic

import "time"

// defaultModel is the model used when none is configured. Pinned to a
// dated release so runs stay reproducible.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultContextWindow covers current Claude model families (200k tokens).
// A per-model lookup table is not worth carrying until the families
// actually diverge.
const defaultContextWindow = 200_000

// defaultMaxTokens bounds completion length when the config is silent.
const defaultMaxTokens = 4096

// defaultTimeout is the HTTP response-header timeout on the underlying
// transport. It bounds the connection phase only; an open stream is not
// cut off once the first byte has arrived.
const defaultTimeout = 30 * time.Second

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	APIKey        string        `yaml:"api_key"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	MaxTokens     int           `yaml:"max_tokens"`
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`
}

// defaults fills in zero-value fields.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// contextWindowForModel returns the context window for the configured
// model, honoring an explicit override first.
func (c *Config) contextWindowForModel() int {
	if c.ContextWindow > 0 {
		return c.ContextWindow
	}
	return defaultContextWindow
}
