package anthropic

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/promptlabs/promptopt/llm"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewAdapter("sk-ant-test", "", "claude-3-5-sonnet-20241022", time.Second)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return adapter
}

func TestNewAdapterRequiresCredentialsAndModel(t *testing.T) {
	if _, err := NewAdapter("", "", "claude-3-5-sonnet-20241022", time.Second); llm.KindOf(err) != llm.ErrorKindInvalidConfiguration {
		t.Errorf("missing api key: expected invalid_configuration, got %v", err)
	}
	if _, err := NewAdapter("sk-ant-test", "", "", time.Second); llm.KindOf(err) != llm.ErrorKindInvalidConfiguration {
		t.Errorf("missing model: expected invalid_configuration, got %v", err)
	}
}

func TestBuildParamsFoldsSystemMessages(t *testing.T) {
	adapter := newTestAdapter(t)

	messages := []llm.Message{
		llm.NewSystemMessage("inline system turn"),
		llm.NewUserMessage("hello"),
		llm.NewAssistantMessage("hi"),
	}
	params, err := adapter.buildParams(messages, llm.GenerationConfig{SystemPrompt: "be terse"})
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}

	if len(params.System) != 2 {
		t.Fatalf("expected 2 system blocks, got %d", len(params.System))
	}
	if params.System[0].Text != "be terse" || params.System[1].Text != "inline system turn" {
		t.Errorf("system blocks out of order: %+v", params.System)
	}
	if len(params.Messages) != 2 {
		t.Errorf("system turns must not appear in the message list, got %d messages", len(params.Messages))
	}
}

func TestBuildParamsRequiresConversationTurn(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.buildParams([]llm.Message{llm.NewSystemMessage("only system")}, llm.GenerationConfig{})
	if llm.KindOf(err) != llm.ErrorKindInvalidRequest {
		t.Errorf("expected invalid_request for system-only conversation, got %v", err)
	}
}

func TestBuildParamsMaxTokensAlwaysSet(t *testing.T) {
	adapter := newTestAdapter(t)
	messages := []llm.Message{llm.NewUserMessage("hello")}

	params, err := adapter.buildParams(messages, llm.GenerationConfig{})
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if params.MaxTokens != llm.DefaultMaxTokens {
		t.Errorf("expected fallback max_tokens %d, got %d", llm.DefaultMaxTokens, params.MaxTokens)
	}

	params, err = adapter.buildParams(messages, llm.GenerationConfig{MaxTokens: lo.ToPtr(512)})
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if params.MaxTokens != 512 {
		t.Errorf("expected explicit max_tokens 512, got %d", params.MaxTokens)
	}
}

func TestBuildParamsSamplingKnobs(t *testing.T) {
	adapter := newTestAdapter(t)

	params, err := adapter.buildParams([]llm.Message{llm.NewUserMessage("hello")}, llm.GenerationConfig{
		Temperature:   lo.ToPtr(0.3),
		TopP:          lo.ToPtr(0.8),
		StopSequences: []string{"END"},
	})
	if err != nil {
		t.Fatalf("buildParams failed: %v", err)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.3 {
		t.Errorf("unexpected temperature %+v", params.Temperature)
	}
	if !params.TopP.Valid() || params.TopP.Value != 0.8 {
		t.Errorf("unexpected top_p %+v", params.TopP)
	}
	if len(params.StopSequences) != 1 || params.StopSequences[0] != "END" {
		t.Errorf("unexpected stop sequences %v", params.StopSequences)
	}
}

func TestConvertErrorAPIStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		kind      llm.ErrorKind
		retryable bool
	}{
		{http.StatusUnauthorized, llm.ErrorKindAuthentication, false},
		{http.StatusForbidden, llm.ErrorKindAuthentication, false},
		{http.StatusTooManyRequests, llm.ErrorKindRateLimit, true},
		{http.StatusBadRequest, llm.ErrorKindInvalidRequest, false},
		{http.StatusInternalServerError, llm.ErrorKindProvider, true},
		{529, llm.ErrorKindProvider, true},
	}

	for _, tc := range cases {
		converted := convertError(&anthropic.Error{StatusCode: tc.status})
		if llm.KindOf(converted) != tc.kind {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.kind, llm.KindOf(converted))
		}
		if llm.IsRetryable(converted) != tc.retryable {
			t.Errorf("status %d: expected retryable=%v", tc.status, tc.retryable)
		}
	}
}

func TestConvertErrorRateLimitCarriesRetryAfter(t *testing.T) {
	converted := convertError(&anthropic.Error{StatusCode: http.StatusTooManyRequests})

	retryAfter := llm.ExtractRetryAfter(converted)
	if retryAfter == nil {
		t.Fatal("expected a retry-after hint on rate limit errors")
	}
	if *retryAfter != defaultRetryAfter {
		t.Errorf("expected default retry-after %v, got %v", defaultRetryAfter, *retryAfter)
	}
}

func TestConvertErrorContextDeadline(t *testing.T) {
	converted := convertError(context.DeadlineExceeded)
	if llm.KindOf(converted) != llm.ErrorKindTimeout {
		t.Errorf("expected timeout classification, got %s", llm.KindOf(converted))
	}
}

func TestConvertErrorUnclassifiedDefaultsToProvider(t *testing.T) {
	converted := convertError(errors.New("something odd"))
	if llm.KindOf(converted) != llm.ErrorKindProvider {
		t.Errorf("expected provider fallback, got %s", llm.KindOf(converted))
	}
}
