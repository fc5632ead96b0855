// Package config handles configuration loading and management for Halyard.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes the remote agent endpoints.
type ServerConfig struct {
	// ChannelURL is the duplex channel endpoint, e.g. "wss://agent.example.com/channel".
	ChannelURL string `yaml:"channel_url"`
	// APIURL is the base URL of the HTTP collaborators (session store,
	// summarizer, uploads), e.g. "https://agent.example.com".
	APIURL string `yaml:"api_url"`
}

// AgentConfig carries the opaque model selection embedded in the channel URL.
// Changing these while connected does not reconnect; the new values apply on
// the next connection.
type AgentConfig struct {
	// Model is the opaque model identifier.
	Model string `yaml:"model"`
	// Provider selects the provider-specific query encoding for Model.
	Provider string `yaml:"provider"`
	// NativeTools enables the native tool-calling flag on the connection.
	NativeTools bool `yaml:"native_tools"`
}

// LoggingConfig mirrors the logging package configuration.
type LoggingConfig struct {
	Level      string   `yaml:"level"`
	FileLevel  string   `yaml:"file_level"`
	JSON       bool     `yaml:"json"`
	Components []string `yaml:"components"`
}

// Config is the complete Halyard configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration defaults applied before the file is read.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ChannelURL: "ws://localhost:8787/channel",
			APIURL:     "http://localhost:8787",
		},
		Agent: AgentConfig{
			Model:    "claude-sonnet",
			Provider: "anthropic",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from the given path, applying defaults for
// missing values. A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the runtime cannot work with.
func (c Config) Validate() error {
	if c.Server.ChannelURL == "" {
		return fmt.Errorf("server.channel_url must not be empty")
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent.model must not be empty")
	}
	return nil
}
