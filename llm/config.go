package llm

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/samber/lo"
)

// Global generation defaults, applied when neither the caller nor the
// provider supplies a value.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 4096
)

// GenerationConfig is the parameter bundle passed to every call.
// Nil pointer fields mean "not set"; they are filled from provider
// defaults and then global defaults before the request is sent.
// A config is never mutated by the client or an adapter.
type GenerationConfig struct {
	// Temperature controls sampling randomness. Valid range [0, 2].
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// TopP is the nucleus sampling threshold. Valid range (0, 1].
	TopP *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`

	// MaxTokens bounds the completion length. Must be positive.
	MaxTokens *int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// SystemPrompt is prepended as the system instruction when set.
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`

	// StopSequences are passed to the provider in order. May be empty.
	StopSequences []string `yaml:"stop_sequences,omitempty" json:"stop_sequences,omitempty"`
}

// DefaultGenerationConfig returns a config populated with the global defaults.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature: lo.ToPtr(DefaultTemperature),
		TopP:        lo.ToPtr(DefaultTopP),
		MaxTokens:   lo.ToPtr(DefaultMaxTokens),
	}
}

// Validate checks all set fields against their documented ranges.
// It returns an invalid_configuration error naming the offending field.
func (c *GenerationConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return NewInvalidConfigurationError("temperature", fmt.Sprintf("must be in [0, 2], got %v", *c.Temperature))
	}
	if c.TopP != nil && (*c.TopP <= 0 || *c.TopP > 1) {
		return NewInvalidConfigurationError("top_p", fmt.Sprintf("must be in (0, 1], got %v", *c.TopP))
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		return NewInvalidConfigurationError("max_tokens", fmt.Sprintf("must be positive, got %d", *c.MaxTokens))
	}
	return nil
}

// Merge returns a copy of c with unset fields filled from defaults,
// then from the global defaults. Explicit fields always win.
func (c *GenerationConfig) Merge(defaults GenerationConfig) GenerationConfig {
	merged := GenerationConfig{}
	if c != nil {
		merged = *c
	}

	// mergo only fills zero-valued (nil) fields, so caller values survive.
	_ = mergo.Merge(&merged, defaults)
	_ = mergo.Merge(&merged, DefaultGenerationConfig())

	return merged
}
