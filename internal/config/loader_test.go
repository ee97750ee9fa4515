package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "perch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  path: /var/lib/perch/perch.db\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Database.Path != "/var/lib/perch/perch.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Gateway.Bind != "127.0.0.1:8080" {
		t.Errorf("gateway.bind = %q", cfg.Gateway.Bind)
	}
	if cfg.Gateway.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %v", cfg.Gateway.ReadTimeout)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("PERCH_TEST_TOKEN", "hunter2")

	path := writeConfig(t, strings.Join([]string{
		"gateway:",
		"  bearer_token: ${PERCH_TEST_TOKEN}",
		"  bind: ${PERCH_TEST_BIND:-0.0.0.0:9090}",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.BearerToken != "hunter2" {
		t.Errorf("bearer_token = %q, want value from environment", cfg.Gateway.BearerToken)
	}
	if cfg.Gateway.Bind != "0.0.0.0:9090" {
		t.Errorf("bind = %q, want the inline default", cfg.Gateway.Bind)
	}
}

func TestLoad_EnvBeatsInlineDefault(t *testing.T) {
	t.Setenv("PERCH_TEST_BIND", "10.1.2.3:8000")

	path := writeConfig(t, "gateway:\n  bind: ${PERCH_TEST_BIND:-0.0.0.0:9090}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Bind != "10.1.2.3:8000" {
		t.Errorf("bind = %q, want environment value", cfg.Gateway.Bind)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "gateway:\n  bearer_token: ${PERCH_TEST_DOES_NOT_EXIST}\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for an unresolved variable")
	}
	if !strings.Contains(err.Error(), "PERCH_TEST_DOES_NOT_EXIST") {
		t.Errorf("error %q should name the unresolved variable", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "gateway: [not\n  a: mapping\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
