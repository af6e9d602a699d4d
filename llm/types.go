package llm

import (
	"encoding/json"
	"time"
)

// Provider identities for the closed set of supported backends.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message represents a single message in a conversation.
// Message order is meaningful (conversation history) and is preserved
// verbatim all the way to the provider.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewUserMessage creates a user message with the given text.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant message with the given text.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// NewSystemMessage creates a system message with the given text.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// Usage represents token usage information from a model response.
// Providers that don't report usage leave it nil on the Result.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// Result represents a successful generation from a provider.
// It is immutable and owned by the caller once returned.
type Result struct {
	// Text is the generated text content.
	Text string `json:"text"`

	// Raw holds the provider's decoded response payload for debugging.
	// Callers must not rely on its shape.
	Raw any `json:"-"`

	// Usage is the token accounting reported by the provider, if any.
	Usage *Usage `json:"usage,omitempty"`

	// Latency is the duration of the provider round trip that produced
	// this result (excluding earlier failed attempts).
	Latency time.Duration `json:"latency"`

	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ToJSON marshals a result to JSON for debugging/logging purposes.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ModelInfo describes a model available on a provider.
type ModelInfo struct {
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}
