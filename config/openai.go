package config

import (
	"os"

	llmopenai "github.com/promptlabs/promptopt/llm/openai"
)

// LoadOpenAIConfig loads OpenAI configuration from the app config.
// It returns the API key, base URL, model, and organization to use for
// creating an OpenAI adapter.
func LoadOpenAIConfig(cfg *AppConfig) (apiKey, baseURL, model, organization string) {
	if cfg == nil {
		apiKey = getOpenAIAPIKeyFromEnv()
		baseURL = getOpenAIBaseURLFromEnv()
		model = os.Getenv("OPENAI_MODEL")
		organization = getOpenAIOrgFromEnv()
		return
	}

	return cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Organization
}

// NewOpenAIAdapter creates a new OpenAI adapter from the configuration.
func NewOpenAIAdapter(cfg *AppConfig) (*llmopenai.Adapter, error) {
	apiKey, baseURL, model, organization := LoadOpenAIConfig(cfg)
	return llmopenai.NewAdapter(apiKey, baseURL, organization, model, timeoutFrom(cfg))
}

// getOpenAIAPIKeyFromEnv gets the OpenAI API key from environment variable.
func getOpenAIAPIKeyFromEnv() string {
	return os.Getenv("OPENAI_API_KEY")
}

// getOpenAIBaseURLFromEnv gets the OpenAI base URL from environment variable.
func getOpenAIBaseURLFromEnv() string {
	return os.Getenv("OPENAI_BASE_URL")
}

// getOpenAIOrgFromEnv gets the OpenAI organization ID from environment variable.
func getOpenAIOrgFromEnv() string {
	return os.Getenv("OPENAI_ORG_ID")
}
