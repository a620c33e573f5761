package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webscout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("WEBSCOUT_TEST_KEY", "sekrit")

	path := writeConfig(t, "version: \"1\"\nmodules:\n  tools.web:\n    backend:\n      api_key: ${WEBSCOUT_TEST_KEY}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("version = %q", cfg.Version)
	}

	node := cfg.Modules["tools.web"]
	var decoded struct {
		Backend struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"backend"`
	}
	if err := node.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Backend.APIKey != "sekrit" {
		t.Errorf("api_key = %q, want expanded env value", decoded.Backend.APIKey)
	}
}

func TestLoad_DefaultValue(t *testing.T) {
	t.Setenv("WEBSCOUT_UNSET_VAR", "")
	os.Unsetenv("WEBSCOUT_UNSET_VAR")

	path := writeConfig(t, "version: ${WEBSCOUT_UNSET_VAR:-\"1\"}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("version = %q, want default applied", cfg.Version)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "version: ${WEBSCOUT_DEFINITELY_MISSING}\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "WEBSCOUT_DEFINITELY_MISSING") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "  \n\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load("/nonexistent/webscout.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestUnescapeDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a\}b`, "a}b"},
		{`back\\slash`, `back\slash`},
	}
	for _, tt := range tests {
		if got := unescapeDefault(tt.in); got != tt.want {
			t.Errorf("unescapeDefault(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
