package config

import (
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestResolve_GatewayLoadsLast(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{
			"gateway.http":       {},
			"provider.anthropic": {},
			"tools.web":          {},
			"transcript.sqlite":  {},
		},
	}

	want := []string{"provider.anthropic", "tools.web", "transcript.sqlite", "gateway.http"}
	if got := Resolve(cfg); !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()

	if got := Resolve(&Config{}); len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", got)
	}
}
