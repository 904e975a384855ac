package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Workflow.Timeout.Std() != 10*time.Minute {
		t.Fatalf("timeout = %v", cfg.Workflow.Timeout)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Store.Driver)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, `
server:
  addr: ":9090"
openai:
  api_key: file-key
  model: gpt-4o
workflow:
  timeout: 5m
  data_dir: /tmp/uploads
store:
  driver: sqlite
  dsn: runs.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.OpenAI.APIKey != "file-key" || cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("openai = %+v", cfg.OpenAI)
	}
	// Unset file fields keep their defaults.
	if cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
		t.Fatalf("embedding model = %q", cfg.OpenAI.EmbeddingModel)
	}
	if cfg.Workflow.Timeout.Std() != 5*time.Minute || cfg.Workflow.DataDir != "/tmp/uploads" {
		t.Fatalf("workflow = %+v", cfg.Workflow)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "runs.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	path := writeConfig(t, "openai:\n  api_key: file-key\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env-key", cfg.OpenAI.APIKey)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatal("Load accepted a missing API key")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")

	missing := writeConfig(t, "store:\n  driver: sqlite\n")
	if _, err := Load(missing); err == nil {
		t.Fatal("Load accepted sqlite driver without a dsn")
	}

	unknown := writeConfig(t, "store:\n  driver: dynamo\n  dsn: x\n")
	if _, err := Load(unknown); err == nil {
		t.Fatal("Load accepted an unknown store driver")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing config file")
	}
}
