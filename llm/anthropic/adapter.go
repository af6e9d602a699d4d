package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/promptlabs/promptopt/llm"
)

// Anthropic reports retry-after for throttled requests, but the SDK
// error does not surface the header; rate limit errors carry this default.
const defaultRetryAfter = 60 * time.Second

// Adapter implements llm.Adapter for Anthropic's messages API.
type Adapter struct {
	client *anthropic.Client
	model  string
}

// NewAdapter creates an Anthropic adapter bound to one model.
// baseURL is optional and overrides the official endpoint; timeout
// bounds each round trip at the transport level.
func NewAdapter(apiKey, baseURL, model string, timeout time.Duration) (*Adapter, error) {
	if apiKey == "" {
		return nil, llm.NewInvalidConfigurationError("api_key", "required for anthropic")
	}
	if model == "" {
		return nil, llm.NewInvalidConfigurationError("model", "required for anthropic")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(opts...)
	return &Adapter{
		client: &client,
		model:  model,
	}, nil
}

// Provider implements llm.Adapter.
func (a *Adapter) Provider() string {
	return llm.ProviderAnthropic
}

// Complete implements llm.Adapter. Anthropic only exposes a messages
// endpoint, so a single-turn completion is a one-message chat call.
func (a *Adapter) Complete(ctx context.Context, prompt string, cfg llm.GenerationConfig) (*llm.Result, error) {
	return a.Chat(ctx, []llm.Message{llm.NewUserMessage(prompt)}, cfg)
}

// Chat implements llm.Adapter. System-role messages in the sequence are
// folded into the request's system blocks, since the messages API only
// accepts user and assistant turns.
func (a *Adapter) Chat(ctx context.Context, messages []llm.Message, cfg llm.GenerationConfig) (*llm.Result, error) {
	params, err := a.buildParams(messages, cfg)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}

	var text strings.Builder
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	return &llm.Result{
		Text: text.String(),
		Raw:  message,
		Usage: &llm.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
		},
		Latency:  time.Since(started),
		Provider: llm.ProviderAnthropic,
		Model:    a.model,
	}, nil
}

func (a *Adapter) buildParams(messages []llm.Message, cfg llm.GenerationConfig) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	if cfg.SystemPrompt != "" {
		system = append(system, anthropic.TextBlockParam{Text: cfg.SystemPrompt})
	}

	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case llm.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(anthropicMsgs) == 0 {
		return anthropic.MessageNewParams{}, llm.NewInvalidRequestError("anthropic requires at least one user or assistant message", nil)
	}

	params := anthropic.MessageNewParams{
		Model:         anthropic.Model(a.model),
		Messages:      anthropicMsgs,
		System:        system,
		StopSequences: cfg.StopSequences,
	}
	// MaxTokens is mandatory on the wire; the merged config always has it.
	if cfg.MaxTokens != nil {
		params.MaxTokens = int64(*cfg.MaxTokens)
	} else {
		params.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		params.TopP = anthropic.Float(*cfg.TopP)
	}

	return params, nil
}

// convertError translates Anthropic API and transport failures into the
// generic taxonomy.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return llm.NewAuthenticationError("anthropic rejected credentials", err)
		case apiErr.StatusCode == http.StatusTooManyRequests:
			retryAfter := defaultRetryAfter
			return llm.NewRateLimitError("anthropic rate limit", &retryAfter, err)
		case apiErr.StatusCode == http.StatusBadRequest:
			return llm.NewInvalidRequestError("anthropic invalid request", err)
		default:
			return llm.NewProviderError(fmt.Sprintf("anthropic request failed with status %d", apiErr.StatusCode), apiErr.StatusCode, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("anthropic request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return llm.NewTimeoutError("anthropic request timed out", err)
		}
		return llm.NewConnectionError("cannot reach anthropic endpoint", err)
	}

	return llm.NewProviderError("anthropic request failed", 0, err)
}

var _ llm.Adapter = (*Adapter)(nil)
