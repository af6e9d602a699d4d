package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AnthropicConfig represents configuration for the Anthropic provider.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`  // Anthropic API key
	BaseURL string `yaml:"base_url,omitempty"` // Custom base URL (default: official API)
	Model   string `yaml:"model,omitempty"`    // Default model name
}

// OllamaConfig represents configuration for the local Ollama provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"`  // Ollama host (default: "http://localhost:11434")
	Model string `yaml:"model,omitempty"` // Default model name
}

// OpenAIConfig represents configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// GenerationDefaults represents app-wide sampling defaults applied to every
// call that does not override them.
type GenerationDefaults struct {
	Temperature *float64 `yaml:"temperature,omitempty"`
	TopP        *float64 `yaml:"top_p,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
}

// AppConfig represents the full application configuration.
type AppConfig struct {
	// LLM provider configurations
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`

	// Default provider used when a command does not name one
	DefaultProvider string `yaml:"default_provider,omitempty"`

	// Call policy
	Timeout     int `yaml:"timeout,omitempty"`      // Per-attempt timeout in seconds (default: 60)
	MaxAttempts int `yaml:"max_attempts,omitempty"` // Retry budget per call (default: 3)

	// Sampling defaults
	Generation GenerationDefaults `yaml:"generation,omitempty"`

	// History database path
	Database string `yaml:"database,omitempty"` // SQLite file (default: ~/.promptopt/history.db)
}

// GetConfigPath returns the default config file path.
// Can be overridden via PROMPTOPT_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("PROMPTOPT_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.promptopt/config.yaml"
	}
	return filepath.Join(homeDir, ".promptopt", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Defaults returns the built-in configuration used when no config file
// exists and as the base layer for merging.
func Defaults() AppConfig {
	cfg := AppConfig{
		Anthropic: AnthropicConfig{
			Model: "claude-3-5-sonnet-20241022",
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "qwen2.5:latest",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		DefaultProvider: "ollama",
		Timeout:         60,
		MaxAttempts:     3,
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		cfg.Database = "./.promptopt/history.db"
	} else {
		cfg.Database = filepath.Join(homeDir, ".promptopt", "history.db")
	}

	return cfg
}

// Load loads the application configuration from the given path, merging
// the file on top of the built-in defaults and then applying environment
// variable overrides. A missing file is not an error; defaults apply.
func Load(path string) (*AppConfig, error) {
	defaults := Defaults()

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err == nil {
		configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
		}

		var fileConfig AppConfig
		if err := yaml.Unmarshal(configYAML, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expandedPath, err)
		}

		// Merge file config onto defaults (file takes precedence)
		if err := mergo.Merge(&defaults, fileConfig, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	applyEnvOverrides(&defaults)

	return &defaults, nil
}

// Save saves the configuration to the specified path.
func Save(cfg *AppConfig, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides on top of the
// merged configuration. Environment always wins over file values so that
// secrets can stay out of config files.
func applyEnvOverrides(cfg *AppConfig) {
	if v := getAnthropicAPIKeyFromEnv(); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := getAnthropicBaseURLFromEnv(); v != "" {
		cfg.Anthropic.BaseURL = v
	}
	if v := getOllamaHostFromEnv(); v != "" {
		cfg.Ollama.Host = v
	}
	if v := getOllamaModelFromEnv(); v != "" {
		cfg.Ollama.Model = v
	}
	if v := getOpenAIAPIKeyFromEnv(); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := getOpenAIBaseURLFromEnv(); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := getOpenAIOrgFromEnv(); v != "" {
		cfg.OpenAI.Organization = v
	}
	if v := os.Getenv("PROMPTOPT_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("PROMPTOPT_DB"); v != "" {
		cfg.Database = expandPath(v)
	}
}
