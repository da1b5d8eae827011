// Package config loads the run configuration from a YAML file, with
// environment-variable fallbacks for API keys.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds per-run settings from miniagent.yaml.
type Config struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	SystemPrompt  string `yaml:"system_prompt"`
	MaxIterations int    `yaml:"max_iterations"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Provider:      "anthropic",
		MaxIterations: 20,
	}
}

// Load reads a config file and applies defaults. A missing file yields
// the default configuration rather than an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 20
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills the API key from the environment when the file leaves
// it unset.
func (c *Config) applyEnv() {
	if c.APIKey != "" {
		return
	}
	switch c.Provider {
	case "anthropic":
		c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
