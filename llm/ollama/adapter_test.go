package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/promptlabs/promptopt/llm"
)

func newFakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/generate":
			var req api.GenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":             req.Model,
				"response":          "completion for: " + req.Prompt,
				"done":              true,
				"prompt_eval_count": 7,
				"eval_count":        11,
			})
		case "/api/chat":
			var req api.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			last := req.Messages[len(req.Messages)-1]
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":   req.Model,
				"message": map[string]string{"role": "assistant", "content": "reply to: " + last.Content},
				"done":    true,
			})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]any{
					{"name": "qwen2.5:latest", "size": 4500000000},
					{"name": "llama3.2:latest", "size": 2000000000},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestCompleteRoundTrip(t *testing.T) {
	srv := newFakeDaemon(t)
	defer srv.Close()

	adapter, err := NewAdapter(srv.URL, "qwen2.5:latest", time.Second)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	result, err := adapter.Complete(context.Background(), "hello", llm.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if result.Text != "completion for: hello" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.Usage == nil || result.Usage.PromptTokens != 7 || result.Usage.CompletionTokens != 11 {
		t.Errorf("unexpected usage %+v", result.Usage)
	}
	if result.Provider != llm.ProviderOllama || result.Model != "qwen2.5:latest" {
		t.Errorf("unexpected identity %s/%s", result.Provider, result.Model)
	}
	if result.Latency <= 0 {
		t.Error("expected positive latency")
	}
}

func TestChatRoundTripPreservesLastMessage(t *testing.T) {
	srv := newFakeDaemon(t)
	defer srv.Close()

	adapter, err := NewAdapter(srv.URL, "qwen2.5:latest", time.Second)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	messages := []llm.Message{
		llm.NewUserMessage("first"),
		llm.NewAssistantMessage("noted"),
		llm.NewUserMessage("second"),
	}
	result, err := adapter.Chat(context.Background(), messages, llm.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if result.Text != "reply to: second" {
		t.Errorf("message ordering not preserved, got %q", result.Text)
	}
}

func TestListModels(t *testing.T) {
	srv := newFakeDaemon(t)
	defer srv.Close()

	adapter, err := NewAdapter(srv.URL, "qwen2.5:latest", time.Second)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	models, err := adapter.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].Name != "qwen2.5:latest" || models[0].Provider != llm.ProviderOllama {
		t.Errorf("unexpected model %+v", models[0])
	}
}

func TestCompleteConnectionRefusedClassified(t *testing.T) {
	srv := newFakeDaemon(t)
	host := srv.URL
	srv.Close()

	adapter, err := NewAdapter(host, "qwen2.5:latest", time.Second)
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	_, err = adapter.Complete(context.Background(), "hello", llm.DefaultGenerationConfig())
	if llm.KindOf(err) != llm.ErrorKindConnection {
		t.Errorf("expected connection classification, got %v", err)
	}
	if !llm.IsRetryable(err) {
		t.Error("connection failures must be retryable")
	}
}

func TestClassifyStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   llm.ErrorKind
	}{
		{http.StatusUnauthorized, llm.ErrorKindAuthentication},
		{http.StatusForbidden, llm.ErrorKindAuthentication},
		{http.StatusTooManyRequests, llm.ErrorKindRateLimit},
		{http.StatusNotFound, llm.ErrorKindProvider},
		{http.StatusInternalServerError, llm.ErrorKindProvider},
	}

	for _, tc := range cases {
		err := classifyError(api.StatusError{StatusCode: tc.status, ErrorMessage: "boom"})
		if llm.KindOf(err) != tc.kind {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.kind, llm.KindOf(err))
		}
	}

	// 5xx provider errors are transient, other 4xx are not.
	if !llm.IsRetryable(classifyError(api.StatusError{StatusCode: 503})) {
		t.Error("5xx must be retryable")
	}
	if llm.IsRetryable(classifyError(api.StatusError{StatusCode: 404})) {
		t.Error("404 must not be retryable")
	}
}

func TestClassifyContextDeadline(t *testing.T) {
	err := classifyError(context.DeadlineExceeded)
	if llm.KindOf(err) != llm.ErrorKindTimeout {
		t.Errorf("expected timeout classification, got %v", err)
	}
}

func TestNewAdapterDefaultsHost(t *testing.T) {
	adapter, err := NewAdapter("", "qwen2.5:latest", time.Second)
	if err != nil {
		t.Fatalf("empty host should fall back to default: %v", err)
	}
	if adapter == nil {
		t.Fatal("expected adapter")
	}
}

func TestNewAdapterRequiresModel(t *testing.T) {
	_, err := NewAdapter("", "", time.Second)
	if llm.KindOf(err) != llm.ErrorKindInvalidConfiguration {
		t.Errorf("expected invalid_configuration, got %v", err)
	}
}
