package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ChannelURL == "" {
		t.Error("default channel URL is empty")
	}
	if cfg.Agent.Model == "" {
		t.Error("default model is empty")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  channel_url: "wss://agent.example.com/channel"
  api_url: "https://agent.example.com"
agent:
  model: "gpt-4o"
  provider: "openai"
  native_tools: true
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ChannelURL != "wss://agent.example.com/channel" {
		t.Errorf("ChannelURL = %q", cfg.Server.ChannelURL)
	}
	if cfg.Agent.Model != "gpt-4o" || cfg.Agent.Provider != "openai" {
		t.Errorf("Agent = %+v", cfg.Agent)
	}
	if !cfg.Agent.NativeTools {
		t.Error("NativeTools = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ChannelURL != Default().Server.ChannelURL {
		t.Errorf("ChannelURL = %q, want default", cfg.Server.ChannelURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{bad yaml"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}

	noURL := Default()
	noURL.Server.ChannelURL = ""
	if err := noURL.Validate(); err == nil {
		t.Error("expected error for empty channel URL, got nil")
	}

	noModel := Default()
	noModel.Agent.Model = ""
	if err := noModel.Validate(); err == nil {
		t.Error("expected error for empty model, got nil")
	}
}
