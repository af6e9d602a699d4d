package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds a single provider round trip.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxAttempts is the total attempt budget, first try included.
	DefaultMaxAttempts = 3
	// DefaultInitialBackoff is the delay before the first retry.
	DefaultInitialBackoff = 1 * time.Second
	// DefaultMaxBackoff caps the delay between retries.
	DefaultMaxBackoff = 30 * time.Second

	backoffMultiplier    = 2.0
	backoffRandomization = 0.2
)

// Client provides one invocation surface regardless of backing provider,
// layering timeout, retry, and error policy on top of whatever adapter
// is bound. Clients hold no per-call mutable state and are safe for
// concurrent use.
type Client struct {
	adapter        Adapter
	model          string
	defaults       GenerationConfig
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout. Exceeding it aborts the
// in-flight round trip and counts as a transient timeout failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts sets the total attempt budget, first try included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum delay between retries.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.initialBackoff = initial
		}
		if max > 0 {
			c.maxBackoff = max
		}
	}
}

// WithDefaults sets the provider-level generation defaults merged into
// every call's config.
func WithDefaults(cfg GenerationConfig) Option {
	return func(c *Client) {
		c.defaults = cfg
	}
}

// WithLogger sets the logger used for per-call records.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "llmClient").Logger()
	}
}

// NewClient creates a Client bound to one adapter and model.
func NewClient(adapter Adapter, model string, opts ...Option) *Client {
	c := &Client{
		adapter:        adapter,
		model:          model,
		timeout:        DefaultTimeout,
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the bound provider identity.
func (c *Client) Provider() string {
	return c.adapter.Provider()
}

// Model returns the bound model name.
func (c *Client) Model() string {
	return c.model
}

// Generate performs single-turn generation, blocking until the call
// completes or the retry budget is exhausted.
func (c *Client) Generate(ctx context.Context, prompt string, cfg *GenerationConfig) (*Result, error) {
	out := <-c.GenerateAsync(ctx, prompt, cfg)
	return out.Result, out.Err
}

// GenerateAsync performs single-turn generation without blocking the
// caller. The returned channel delivers exactly one Outcome.
// Retry and timeout behavior is identical to Generate, which is a thin
// wrapper over this surface.
func (c *Client) GenerateAsync(ctx context.Context, prompt string, cfg *GenerationConfig) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		if strings.TrimSpace(prompt) == "" {
			ch <- Outcome{Err: NewInvalidRequestError("prompt must not be empty", nil)}
			return
		}
		res, err := c.do(ctx, "generate", cfg, func(ctx context.Context, merged GenerationConfig) (*Result, error) {
			return c.adapter.Complete(ctx, prompt, merged)
		})
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// Chat performs multi-turn generation, blocking until the call
// completes or the retry budget is exhausted.
func (c *Client) Chat(ctx context.Context, messages []Message, cfg *GenerationConfig) (*Result, error) {
	out := <-c.ChatAsync(ctx, messages, cfg)
	return out.Result, out.Err
}

// ChatAsync performs multi-turn generation without blocking the caller.
// The returned channel delivers exactly one Outcome.
func (c *Client) ChatAsync(ctx context.Context, messages []Message, cfg *GenerationConfig) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		if len(messages) == 0 {
			ch <- Outcome{Err: NewInvalidRequestError("at least one message is required", nil)}
			return
		}
		res, err := c.do(ctx, "chat", cfg, func(ctx context.Context, merged GenerationConfig) (*Result, error) {
			return c.adapter.Chat(ctx, messages, merged)
		})
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// do validates and merges the config, then drives the retry loop around
// the adapter call. Transient classifications are retried with
// exponential backoff up to the attempt budget; everything else fails
// immediately. The last error is the one surfaced.
func (c *Client) do(ctx context.Context, op string, cfg *GenerationConfig, call func(context.Context, GenerationConfig) (*Result, error)) (*Result, error) {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		c.logCall(op, started, 0, err)
		return nil, err
	}
	merged := cfg.Merge(c.defaults)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	eb.MaxInterval = c.maxBackoff
	eb.Multiplier = backoffMultiplier
	eb.RandomizationFactor = backoffRandomization
	eb.MaxElapsedTime = 0
	eb.Reset()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := call(attemptCtx, merged)
		cancel()

		if err == nil {
			c.logCall(op, started, attempt, nil)
			return res, nil
		}

		lastErr = classify(err)
		if !IsRetryable(lastErr) || attempt == c.maxAttempts {
			break
		}

		delay := eb.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		// A provider-supplied retry-after wins over the computed delay.
		if retryAfter := ExtractRetryAfter(lastErr); retryAfter != nil {
			delay = *retryAfter
		}

		c.logger.Warn().
			Str("provider", c.adapter.Provider()).
			Str("model", c.model).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Dur("next_delay", delay).
			Err(lastErr).
			Msg("Transient failure, retrying after delay")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = classify(ctx.Err())
			c.logCall(op, started, attempt, lastErr)
			return nil, lastErr
		case <-timer.C:
		}
	}

	c.logCall(op, started, c.maxAttempts, lastErr)
	return nil, lastErr
}

// logCall emits the one observability record per call.
func (c *Client) logCall(op string, started time.Time, attempts int, err error) {
	evt := c.logger.Info()
	if err != nil {
		evt = c.logger.Error().Err(err)
	}
	evt.
		Str("op", op).
		Str("provider", c.adapter.Provider()).
		Str("model", c.model).
		Dur("duration", time.Since(started)).
		Int("attempts", attempts).
		Bool("success", err == nil).
		Msg("LLM call finished")
}

// classify normalizes adapter and context errors into the *Error
// taxonomy. Adapters are expected to classify their own failures; this
// is the safety net for anything that slipped through.
func classify(err error) error {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("call timed out", err)
	case errors.Is(err, context.Canceled):
		return &Error{Kind: ErrorKindTimeout, Message: "call canceled", Retryable: false, ProviderErr: err}
	default:
		return NewProviderError("provider call failed", 0, err)
	}
}
