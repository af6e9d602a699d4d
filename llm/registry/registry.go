// Package registry resolves provider names to adapter constructors and
// caches one client per (provider, model) pair for the life of the
// process. It lives outside package llm so the provider subpackages can
// depend on the core types without an import cycle.
package registry

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/promptlabs/promptopt/llm"
	"github.com/promptlabs/promptopt/llm/anthropic"
	"github.com/promptlabs/promptopt/llm/ollama"
	"github.com/promptlabs/promptopt/llm/openai"
)

// ProviderConfig holds the credentials and endpoints needed to
// construct adapters. Loading it from files or the environment is the
// caller's concern; ConfigFromEnv covers the common case.
type ProviderConfig struct {
	AnthropicAPIKey  string
	AnthropicBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string

	OllamaHost string

	// Timeout bounds each provider round trip. Zero means llm.DefaultTimeout.
	Timeout time.Duration
	// MaxAttempts is the retry budget per call. Zero means llm.DefaultMaxAttempts.
	MaxAttempts int
}

// ConfigFromEnv builds a ProviderConfig from the conventional
// environment variables.
func ConfigFromEnv() *ProviderConfig {
	return &ProviderConfig{
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenAIOrg:        os.Getenv("OPENAI_ORG_ID"),
		OllamaHost:       os.Getenv("OLLAMA_HOST"),
	}
}

// ClientKey uniquely identifies a cached client.
type ClientKey struct {
	Provider string
	Model    string
}

// Registry creates and caches llm.Client instances by (provider, model).
// Get-or-create is serialized so at most one client is ever constructed
// per key. The registry lives for the life of the process.
type Registry struct {
	mu      sync.Mutex
	clients map[ClientKey]*llm.Client
	config  *ProviderConfig
	logger  zerolog.Logger
}

// New creates a Registry with the given provider configuration.
func New(config *ProviderConfig, logger zerolog.Logger) *Registry {
	if config == nil {
		config = &ProviderConfig{}
	}
	return &Registry{
		clients: make(map[ClientKey]*llm.Client),
		config:  config,
		logger:  logger.With().Str("component", "llmRegistry").Logger(),
	}
}

// Client returns the cached client for (provider, model), constructing
// it on first use. Unregistered provider names fail with an
// unknown_provider error.
func (r *Registry) Client(provider, model string) (*llm.Client, error) {
	key := ClientKey{Provider: provider, Model: model}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	adapter, err := r.newAdapter(provider, model)
	if err != nil {
		return nil, err
	}

	opts := []llm.Option{llm.WithLogger(r.logger)}
	if r.config.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(r.config.Timeout))
	}
	if r.config.MaxAttempts > 0 {
		opts = append(opts, llm.WithMaxAttempts(r.config.MaxAttempts))
	}

	client := llm.NewClient(adapter, model, opts...)
	r.clients[key] = client

	r.logger.Debug().Str("provider", provider).Str("model", model).Msg("Created LLM client")
	return client, nil
}

// CachedKeys returns the identities of all clients constructed so far.
func (r *Registry) CachedKeys() []ClientKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]ClientKey, 0, len(r.clients))
	for key := range r.clients {
		keys = append(keys, key)
	}
	return keys
}

// newAdapter maps a provider name to its adapter constructor. The
// provider set is closed; anything else is an unknown_provider error.
func (r *Registry) newAdapter(provider, model string) (llm.Adapter, error) {
	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}

	switch provider {
	case llm.ProviderOllama:
		return ollama.NewAdapter(r.config.OllamaHost, model, timeout)
	case llm.ProviderOpenAI:
		return openai.NewAdapter(r.config.OpenAIAPIKey, r.config.OpenAIBaseURL, r.config.OpenAIOrg, model, timeout)
	case llm.ProviderAnthropic:
		return anthropic.NewAdapter(r.config.AnthropicAPIKey, r.config.AnthropicBaseURL, model, timeout)
	default:
		return nil, llm.NewUnknownProviderError(provider)
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, created from the
// environment on first use and torn down with the process.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(ConfigFromEnv(), zerolog.Nop())
	})
	return defaultRegistry
}

// TextOutcome carries the terminal result of an asynchronous one-shot call.
type TextOutcome struct {
	Text string
	Err  error
}

// QuickGenerate resolves or creates the client for (provider, model),
// issues one generate call through the full retry/timeout policy, and
// returns the generated text.
func QuickGenerate(ctx context.Context, provider, model, prompt string, cfg *llm.GenerationConfig) (string, error) {
	client, err := Default().Client(provider, model)
	if err != nil {
		return "", err
	}
	result, err := client.Generate(ctx, prompt, cfg)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// QuickChat is the chat counterpart of QuickGenerate.
func QuickChat(ctx context.Context, provider, model string, messages []llm.Message, cfg *llm.GenerationConfig) (string, error) {
	client, err := Default().Client(provider, model)
	if err != nil {
		return "", err
	}
	result, err := client.Chat(ctx, messages, cfg)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// QuickGenerateAsync is the non-blocking counterpart of QuickGenerate.
// The returned channel delivers exactly one TextOutcome.
func QuickGenerateAsync(ctx context.Context, provider, model, prompt string, cfg *llm.GenerationConfig) <-chan TextOutcome {
	ch := make(chan TextOutcome, 1)
	go func() {
		text, err := QuickGenerate(ctx, provider, model, prompt, cfg)
		ch <- TextOutcome{Text: text, Err: err}
	}()
	return ch
}

// QuickChatAsync is the non-blocking counterpart of QuickChat.
// The returned channel delivers exactly one TextOutcome.
func QuickChatAsync(ctx context.Context, provider, model string, messages []llm.Message, cfg *llm.GenerationConfig) <-chan TextOutcome {
	ch := make(chan TextOutcome, 1)
	go func() {
		text, err := QuickChat(ctx, provider, model, messages, cfg)
		ch <- TextOutcome{Text: text, Err: err}
	}()
	return ch
}
