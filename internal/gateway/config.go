package gateway

import (
	"time"

	"github.com/probelab/webscout/internal/agent"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Agent           AgentConfig   `yaml:"agent"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// Chat responses stream for the lifetime of an agent run, so the
	// write timeout has to cover the loop's wall-clock bound.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AgentConfig tunes the research loop behind /chat.
type AgentConfig struct {
	MaxSteps        int           `yaml:"max_steps"`
	TokenBudget     int           `yaml:"token_budget"`
	Timeout         time.Duration `yaml:"timeout"`
	LoopThreshold   int           `yaml:"loop_threshold"`
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
}

// loopConfig maps the YAML knobs to the agent loop configuration.
// Zero values fall through to the loop's own defaults.
func (a AgentConfig) loopConfig() agent.LoopConfig {
	return agent.LoopConfig{
		MaxSteps:        a.MaxSteps,
		TokenBudget:     a.TokenBudget,
		Timeout:         a.Timeout,
		LoopThreshold:   a.LoopThreshold,
		ApprovalTimeout: a.ApprovalTimeout,
	}
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
