package agent

import "time"

// Default values for LoopConfig.
const (
	DefaultMaxSteps        = 10
	DefaultTokenBudget     = 0 // 0 means unlimited.
	DefaultTimeout         = 5 * time.Minute
	DefaultLoopThreshold   = 3
	DefaultApprovalTimeout = 2 * time.Minute
)

// LoopConfig controls the behavior of the agent reasoning loop.
type LoopConfig struct {
	// MaxSteps is the maximum number of reason-act cycles.
	MaxSteps int

	// TokenBudget is the cumulative token limit (input + output).
	// Zero means unlimited.
	TokenBudget int

	// Timeout is the maximum wall-clock duration for the loop. The step
	// ceiling bounds iteration count, not elapsed time; this bounds both.
	Timeout time.Duration

	// LoopThreshold is how many times the same tool call (name + args)
	// can repeat before the loop is considered stuck.
	LoopThreshold int

	// ApprovalTimeout bounds how long a tool waits for user approval.
	ApprovalTimeout time.Duration
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LoopThreshold <= 0 {
		c.LoopThreshold = DefaultLoopThreshold
	}
	if c.ApprovalTimeout <= 0 {
		c.ApprovalTimeout = DefaultApprovalTimeout
	}
	return c
}
