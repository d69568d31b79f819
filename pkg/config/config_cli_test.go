package config

import (
	"path/filepath"
	"testing"
)

func TestLoadWithCLIPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	// JSON config files go through the YAML parser unchanged.
	writeFile(t, path, `{
  "llm": {"provider": "ollama", "model": "qwen3:8b"},
  "audit": {"enabled": false}
}`)
	t.Setenv("ONTOFORGE_LLM_PROVIDER", "openai")

	cfg, err := LoadWithCLI([]string{
		"--config", path,
		"--set", "llm.provider=anthropic",
		"--set", "audit.enabled=true",
		"--set", "evaluator.timeout_seconds=5",
		"--set", `mcp.servers={"graphdb":{"transport":"http","url":"http://localhost:7200/mcp"}}`,
	})
	if err != nil {
		t.Fatalf("LoadWithCLI: %v", err)
	}

	// --set beats both the file and the environment.
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.LLM.Provider)
	}
	// Keys without an override keep their file values.
	if cfg.LLM.Model != "qwen3:8b" {
		t.Errorf("model = %q, want qwen3:8b", cfg.LLM.Model)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit.enabled override lost")
	}
	if cfg.Evaluator.TimeoutSeconds != 5 {
		t.Errorf("evaluator timeout = %d, want 5", cfg.Evaluator.TimeoutSeconds)
	}
	server, ok := cfg.MCP.Servers["graphdb"]
	if !ok {
		t.Fatal("mcp.servers override lost")
	}
	if server.Transport != "http" || server.URL != "http://localhost:7200/mcp" {
		t.Errorf("unexpected server: %+v", server)
	}
}

func TestParseCLIOverridesErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--config"},
		{"--profile"},
		{"--set"},
		{"--set", "no-equals"},
		{"--set", "=value"},
	} {
		if _, _, err := parseCLIOverrides(args); err == nil {
			t.Errorf("parseCLIOverrides(%v): expected error", args)
		}
	}
}
