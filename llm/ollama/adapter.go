package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/samber/lo"

	"github.com/promptlabs/promptopt/llm"
)

// DefaultHost is the default Ollama daemon address.
const DefaultHost = "http://localhost:11434"

// Adapter implements llm.Adapter against a local Ollama daemon.
// It uses /api/generate for single-turn completion and /api/chat for
// multi-turn conversations.
type Adapter struct {
	client *api.Client
	model  string
}

// NewAdapter creates an Ollama adapter bound to one model.
// If host is empty, DefaultHost is used. timeout bounds each round trip
// at the transport level.
func NewAdapter(host, model string, timeout time.Duration) (*Adapter, error) {
	if model == "" {
		return nil, llm.NewInvalidConfigurationError("model", "required for ollama")
	}
	if host == "" {
		host = DefaultHost
	}

	baseURL, err := parseHost(host)
	if err != nil {
		return nil, llm.NewInvalidConfigurationError("host", fmt.Sprintf("invalid ollama host %q: %v", host, err))
	}

	httpClient := &http.Client{Timeout: timeout}
	return &Adapter{
		client: api.NewClient(baseURL, httpClient),
		model:  model,
	}, nil
}

// parseHost parses a host string into a URL, defaulting the scheme to http.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// Provider implements llm.Adapter.
func (a *Adapter) Provider() string {
	return llm.ProviderOllama
}

// Complete implements llm.Adapter using the generate endpoint.
func (a *Adapter) Complete(ctx context.Context, prompt string, cfg llm.GenerationConfig) (*llm.Result, error) {
	req := &api.GenerateRequest{
		Model:   a.model,
		Prompt:  prompt,
		Stream:  new(bool),
		System:  cfg.SystemPrompt,
		Options: buildOptions(cfg),
	}

	started := time.Now()
	var genResp api.GenerateResponse
	err := a.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		genResp = resp
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}

	return &llm.Result{
		Text:     genResp.Response,
		Raw:      genResp,
		Usage:    usageFromMetrics(genResp.Metrics),
		Latency:  time.Since(started),
		Provider: llm.ProviderOllama,
		Model:    a.model,
	}, nil
}

// Chat implements llm.Adapter using the chat endpoint.
func (a *Adapter) Chat(ctx context.Context, messages []llm.Message, cfg llm.GenerationConfig) (*llm.Result, error) {
	ollamaMsgs := lo.Map(messages, func(m llm.Message, _ int) api.Message {
		return api.Message{Role: string(m.Role), Content: m.Content}
	})
	if cfg.SystemPrompt != "" {
		ollamaMsgs = append([]api.Message{{Role: "system", Content: cfg.SystemPrompt}}, ollamaMsgs...)
	}

	req := &api.ChatRequest{
		Model:    a.model,
		Messages: ollamaMsgs,
		Stream:   new(bool),
		Options:  buildOptions(cfg),
	}

	started := time.Now()
	var chatResp api.ChatResponse
	err := a.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, classifyError(err)
	}

	return &llm.Result{
		Text:     chatResp.Message.Content,
		Raw:      chatResp,
		Usage:    usageFromMetrics(chatResp.Metrics),
		Latency:  time.Since(started),
		Provider: llm.ProviderOllama,
		Model:    a.model,
	}, nil
}

// ListModels returns the model tags available on the daemon.
func (a *Adapter) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	resp, err := a.client.List(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	return lo.Map(resp.Models, func(m api.ListModelResponse, _ int) llm.ModelInfo {
		return llm.ModelInfo{
			Name:       m.Name,
			Provider:   llm.ProviderOllama,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
		}
	}), nil
}

// buildOptions maps the resolved generation config onto Ollama's
// request options. The config has been merged by the client, so the
// pointer fields are always set.
func buildOptions(cfg llm.GenerationConfig) map[string]any {
	opts := make(map[string]any)
	if cfg.Temperature != nil {
		opts["temperature"] = *cfg.Temperature
	}
	if cfg.TopP != nil {
		opts["top_p"] = *cfg.TopP
	}
	if cfg.MaxTokens != nil {
		opts["num_predict"] = *cfg.MaxTokens
	}
	if len(cfg.StopSequences) > 0 {
		opts["stop"] = cfg.StopSequences
	}
	return opts
}

func usageFromMetrics(m api.Metrics) *llm.Usage {
	if m.PromptEvalCount == 0 && m.EvalCount == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     int64(m.PromptEvalCount),
		CompletionTokens: int64(m.EvalCount),
	}
}

// classifyError translates Ollama API and transport failures into the
// generic taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return llm.NewAuthenticationError(fmt.Sprintf("ollama rejected credentials: %s", msg), err)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return llm.NewRateLimitError(fmt.Sprintf("ollama rate limit: %s", msg), nil, err)
		default:
			return llm.NewProviderError(fmt.Sprintf("ollama request failed: %s", msg), statusErr.StatusCode, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewTimeoutError("ollama request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return llm.NewTimeoutError("ollama request timed out", err)
		}
		return llm.NewConnectionError("cannot reach ollama, is the daemon running?", err)
	}

	return llm.NewProviderError("ollama request failed", 0, err)
}

var (
	_ llm.Adapter     = (*Adapter)(nil)
	_ llm.ModelLister = (*Adapter)(nil)
)
