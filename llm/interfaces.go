package llm

import (
	"context"
)

// Adapter translates generic requests into one provider's wire calls
// and maps its responses and errors back to generic shapes.
//
// Implementations perform exactly one network round trip per call and
// never retry internally; retry is a client-level policy so behavior is
// identical regardless of which adapter is active. Providers that only
// expose a chat endpoint implement Complete as a single-message chat
// call; that mapping is invisible to the caller.
//
// Adapters hold no per-call mutable state and are safe for concurrent
// use. Every failure they return is a *Error classification.
type Adapter interface {
	// Provider returns the provider identity, e.g. "ollama".
	Provider() string

	// Complete performs single-turn generation for the given prompt.
	Complete(ctx context.Context, prompt string, cfg GenerationConfig) (*Result, error)

	// Chat performs multi-turn generation over an ordered message
	// sequence. Message order is preserved verbatim to the provider.
	Chat(ctx context.Context, messages []Message, cfg GenerationConfig) (*Result, error)
}

// ModelLister is implemented by adapters that can enumerate the models
// available on their provider.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Outcome carries the terminal result of an asynchronous call.
// Exactly one of Result and Err is set.
type Outcome struct {
	Result *Result
	Err    error
}
