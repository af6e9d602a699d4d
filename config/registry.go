package config

import (
	"github.com/promptlabs/promptopt/llm"
	"github.com/promptlabs/promptopt/llm/registry"
)

// ProviderConfig converts the app configuration into the registry's
// provider configuration.
func (c *AppConfig) ProviderConfig() *registry.ProviderConfig {
	return &registry.ProviderConfig{
		AnthropicAPIKey:  c.Anthropic.APIKey,
		AnthropicBaseURL: c.Anthropic.BaseURL,
		OpenAIAPIKey:     c.OpenAI.APIKey,
		OpenAIBaseURL:    c.OpenAI.BaseURL,
		OpenAIOrg:        c.OpenAI.Organization,
		OllamaHost:       c.Ollama.Host,
		Timeout:          timeoutFrom(c),
		MaxAttempts:      c.MaxAttempts,
	}
}

// ModelFor returns the configured default model for a provider. Unknown
// provider names return the empty string; the registry rejects them later.
func (c *AppConfig) ModelFor(provider string) string {
	switch provider {
	case llm.ProviderAnthropic:
		return c.Anthropic.Model
	case llm.ProviderOllama:
		return c.Ollama.Model
	case llm.ProviderOpenAI:
		return c.OpenAI.Model
	default:
		return ""
	}
}

// GenerationConfig converts the configured sampling defaults into a
// generation config usable as per-call overrides. Returns nil when no
// default is configured so the library defaults apply untouched.
func (c *AppConfig) GenerationConfig() *llm.GenerationConfig {
	g := c.Generation
	if g.Temperature == nil && g.TopP == nil && g.MaxTokens == nil {
		return nil
	}
	return &llm.GenerationConfig{
		Temperature: g.Temperature,
		TopP:        g.TopP,
		MaxTokens:   g.MaxTokens,
	}
}
