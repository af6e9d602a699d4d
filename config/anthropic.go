package config

import (
	"os"

	llmanthropic "github.com/promptlabs/promptopt/llm/anthropic"
)

// LoadAnthropicConfig loads Anthropic configuration from the app config.
// It returns the API key, base URL, and model to use for creating an
// Anthropic adapter.
func LoadAnthropicConfig(cfg *AppConfig) (apiKey, baseURL, model string) {
	if cfg == nil {
		return getAnthropicAPIKeyFromEnv(), getAnthropicBaseURLFromEnv(), os.Getenv("ANTHROPIC_MODEL")
	}

	return cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.Anthropic.Model
}

// NewAnthropicAdapter creates a new Anthropic adapter from the configuration.
func NewAnthropicAdapter(cfg *AppConfig) (*llmanthropic.Adapter, error) {
	apiKey, baseURL, model := LoadAnthropicConfig(cfg)
	return llmanthropic.NewAdapter(apiKey, baseURL, model, timeoutFrom(cfg))
}

// getAnthropicAPIKeyFromEnv gets the Anthropic API key from environment variable.
func getAnthropicAPIKeyFromEnv() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// getAnthropicBaseURLFromEnv gets the Anthropic base URL from environment variable.
func getAnthropicBaseURLFromEnv() string {
	return os.Getenv("ANTHROPIC_BASE_URL")
}
