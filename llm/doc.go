// Package llm provides a provider-neutral abstraction layer for Large
// Language Model (LLM) APIs.
//
// This package defines the common types, the adapter capability
// interface, and the client facade that let the rest of the codebase
// call multiple providers (Ollama, OpenAI, Anthropic) without being
// coupled to any specific provider's SDK.
//
// # Core Concepts
//
//  1. GenerationConfig: an immutable parameter bundle (temperature,
//     top_p, max tokens, system prompt, stop sequences) validated at
//     construction and merged against provider and global defaults.
//
//  2. Adapter Interface: one implementation per provider, each
//     performing exactly one network round trip per call and
//     classifying every failure into the *Error taxonomy. Adapters
//     never retry.
//
//  3. Client: the invocation facade. It owns exactly one adapter plus
//     the shared timeout and retry policy, and exposes Generate/Chat
//     with async twins (GenerateAsync/ChatAsync). The blocking surface
//     is a thin wrapper over the async one, so the two can never
//     diverge in retry or timeout behavior.
//
//  4. Errors: the Error type carries a fixed classification
//     (rate_limit, timeout, connection, authentication, ...) plus a
//     Retryable flag. Transient classifications are retried with
//     exponential backoff; everything else fails immediately.
//
// Client construction and per-(provider, model) caching live in the
// registry subpackage, which also provides one-shot convenience calls
// (QuickGenerate, QuickChat, and their async counterparts).
//
// Usage Example
//
//	client := llm.NewClient(adapter, "qwen2.5:latest",
//	    llm.WithTimeout(30*time.Second),
//	    llm.WithMaxAttempts(3),
//	)
//
//	result, err := client.Generate(ctx, "Summarize this paragraph.", &llm.GenerationConfig{
//	    Temperature: lo.ToPtr(0.2),
//	})
//
// # Extension Points
//
// To add a new provider:
//  1. Implement the Adapter interface in a subpackage
//  2. Translate provider-specific errors into *llm.Error classifications
//  3. Register the constructor in the registry subpackage's closed
//     provider switch
package llm
