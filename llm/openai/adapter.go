package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/promptlabs/promptopt/llm"
)

// OpenAI does not expose retry-after on its error type, so rate limit
// errors carry this default.
const defaultRetryAfter = 60 * time.Second

// Adapter implements llm.Adapter for OpenAI's chat-completions API and
// any OpenAI-compatible endpoint reachable through a custom base URL
// (DeepSeek, vLLM, and the like).
type Adapter struct {
	client *openai.Client
	model  string
}

// NewAdapter creates an OpenAI adapter bound to one model.
// baseURL and organization are optional; timeout bounds each round trip
// at the transport level.
func NewAdapter(apiKey, baseURL, organization, model string, timeout time.Duration) (*Adapter, error) {
	if apiKey == "" {
		return nil, llm.NewInvalidConfigurationError("api_key", "required for openai")
	}
	if model == "" {
		return nil, llm.NewInvalidConfigurationError("model", "required for openai")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if organization != "" {
		config.OrgID = organization
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Provider implements llm.Adapter.
func (a *Adapter) Provider() string {
	return llm.ProviderOpenAI
}

// Complete implements llm.Adapter. OpenAI only exposes a chat endpoint,
// so a single-turn completion is a one-message chat call.
func (a *Adapter) Complete(ctx context.Context, prompt string, cfg llm.GenerationConfig) (*llm.Result, error) {
	return a.Chat(ctx, []llm.Message{llm.NewUserMessage(prompt)}, cfg)
}

// Chat implements llm.Adapter.
func (a *Adapter) Chat(ctx context.Context, messages []llm.Message, cfg llm.GenerationConfig) (*llm.Result, error) {
	openaiMsgs := lo.Map(messages, func(m llm.Message, _ int) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	})
	if cfg.SystemPrompt != "" {
		systemMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cfg.SystemPrompt,
		}
		openaiMsgs = append([]openai.ChatCompletionMessage{systemMsg}, openaiMsgs...)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: openaiMsgs,
		Stop:     cfg.StopSequences,
	}
	if cfg.Temperature != nil {
		chatReq.Temperature = float32(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		chatReq.TopP = float32(*cfg.TopP)
	}
	if cfg.MaxTokens != nil {
		chatReq.MaxTokens = *cfg.MaxTokens
	}

	started := time.Now()
	chatResp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertError(err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, llm.NewProviderError("openai response contained no choices", 0, nil)
	}

	return &llm.Result{
		Text: chatResp.Choices[0].Message.Content,
		Raw:  chatResp,
		Usage: &llm.Usage{
			PromptTokens:     int64(chatResp.Usage.PromptTokens),
			CompletionTokens: int64(chatResp.Usage.CompletionTokens),
		},
		Latency:  time.Since(started),
		Provider: llm.ProviderOpenAI,
		Model:    a.model,
	}, nil
}

// convertError translates OpenAI API and transport failures into the
// generic taxonomy.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return llm.NewAuthenticationError(fmt.Sprintf("openai rejected credentials: %s", apiErr.Message), err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			retryAfter := defaultRetryAfter
			return llm.NewRateLimitError(fmt.Sprintf("openai rate limit: %s", apiErr.Message), &retryAfter, err)
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return llm.NewInvalidRequestError(fmt.Sprintf("openai invalid request: %s", apiErr.Message), err)
		default:
			return llm.NewProviderError(fmt.Sprintf("openai request failed: %s", apiErr.Message), apiErr.HTTPStatusCode, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("openai request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return llm.NewTimeoutError("openai request timed out", err)
		}
		return llm.NewConnectionError("cannot reach openai endpoint", err)
	}

	return llm.NewProviderError("openai request failed", 0, err)
}

var _ llm.Adapter = (*Adapter)(nil)
