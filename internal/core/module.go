package core

// ModuleID uniquely identifies a module, namespaced by dots
// (e.g. "provider.anthropic", "memory.sqlite").
type ModuleID string

// ModuleInfo describes a registered module: its identity and how to
// construct a fresh instance.
type ModuleInfo struct {
	// ID is the stable identifier used in configuration files.
	ID ModuleID

	// New returns a new, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Lifecycle
// behavior is added by implementing the optional interfaces in
// lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
