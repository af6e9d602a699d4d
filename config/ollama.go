package config

import (
	"os"
	"time"

	llmollama "github.com/promptlabs/promptopt/llm/ollama"
)

// LoadOllamaConfig loads Ollama configuration from the app config.
// It returns the host and model to use for creating an Ollama adapter.
func LoadOllamaConfig(cfg *AppConfig) (host, model string) {
	if cfg == nil {
		host = getOllamaHostFromEnv()
		model = getOllamaModelFromEnv()
	} else {
		host = cfg.Ollama.Host
		model = cfg.Ollama.Model
	}

	if host == "" {
		host = llmollama.DefaultHost
	}

	return host, model
}

// NewOllamaAdapter creates a new Ollama adapter from the configuration.
func NewOllamaAdapter(cfg *AppConfig) (*llmollama.Adapter, error) {
	host, model := LoadOllamaConfig(cfg)
	return llmollama.NewAdapter(host, model, timeoutFrom(cfg))
}

func timeoutFrom(cfg *AppConfig) time.Duration {
	if cfg == nil || cfg.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.Timeout) * time.Second
}

// getOllamaHostFromEnv gets the Ollama host from environment variable.
func getOllamaHostFromEnv() string {
	return os.Getenv("OLLAMA_HOST")
}

// getOllamaModelFromEnv gets the Ollama model from environment variable.
func getOllamaModelFromEnv() string {
	return os.Getenv("OLLAMA_MODEL")
}
