package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
)

// fakeAdapter counts invocations and fails the first failCount calls
// with failWith before succeeding. Successful results echo the prompt
// and the resolved temperature so tests can detect cross-call leakage.
type fakeAdapter struct {
	mu        sync.Mutex
	calls     int
	callTimes []time.Time
	failCount int
	failWith  error
	block     bool // wait for ctx cancellation instead of answering
}

func (f *fakeAdapter) Provider() string { return "fake" }

func (f *fakeAdapter) Complete(ctx context.Context, prompt string, cfg GenerationConfig) (*Result, error) {
	return f.respond(ctx, prompt, cfg)
}

func (f *fakeAdapter) Chat(ctx context.Context, messages []Message, cfg GenerationConfig) (*Result, error) {
	return f.respond(ctx, messages[len(messages)-1].Content, cfg)
}

func (f *fakeAdapter) respond(ctx context.Context, text string, cfg GenerationConfig) (*Result, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.callTimes = append(f.callTimes, time.Now())
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if call <= f.failCount {
		return nil, f.failWith
	}
	return &Result{
		Text:     fmt.Sprintf("echo:%s:temp=%.2f", text, *cfg.Temperature),
		Provider: "fake",
		Model:    "fake-model",
	}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(adapter Adapter, opts ...Option) *Client {
	base := []Option{
		WithTimeout(time.Second),
		WithMaxAttempts(3),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	}
	return NewClient(adapter, "fake-model", append(base, opts...)...)
}

func TestGenerateRetriesTransientThenSucceeds(t *testing.T) {
	adapter := &fakeAdapter{failCount: 2, failWith: NewConnectionError("refused", nil)}
	client := newTestClient(adapter)

	result, err := client.Generate(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if result.Text != "echo:hello:temp=0.70" {
		t.Errorf("unexpected result text %q", result.Text)
	}
	if adapter.callCount() != 3 {
		t.Errorf("expected exactly 3 adapter calls, got %d", adapter.callCount())
	}
}

func TestGenerateExhaustsRetryBudget(t *testing.T) {
	adapter := &fakeAdapter{failCount: 100, failWith: NewConnectionError("refused", nil)}
	client := newTestClient(adapter)

	_, err := client.Generate(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if KindOf(err) != ErrorKindConnection {
		t.Errorf("expected the final connection classification to surface, got %s", KindOf(err))
	}
	if adapter.callCount() != 3 {
		t.Errorf("expected exactly max_attempts=3 adapter calls, got %d", adapter.callCount())
	}
}

func TestGenerateBackoffDelaysIncrease(t *testing.T) {
	adapter := &fakeAdapter{failCount: 2, failWith: NewConnectionError("refused", nil)}
	client := newTestClient(adapter, WithBackoff(30*time.Millisecond, time.Second))

	if _, err := client.Generate(context.Background(), "hello", nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	adapter.mu.Lock()
	times := append([]time.Time(nil), adapter.callTimes...)
	adapter.mu.Unlock()
	if len(times) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(times))
	}
	first := times[1].Sub(times[0])
	second := times[2].Sub(times[1])
	if second <= first {
		t.Errorf("expected increasing backoff delays, got %v then %v", first, second)
	}
}

func TestGenerateHonorsRetryAfter(t *testing.T) {
	retryAfter := 60 * time.Millisecond
	adapter := &fakeAdapter{failCount: 1, failWith: NewRateLimitError("throttled", &retryAfter, nil)}
	client := newTestClient(adapter, WithBackoff(time.Millisecond, 2*time.Millisecond))

	started := time.Now()
	if _, err := client.Generate(context.Background(), "hello", nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Errorf("expected retry-after to govern the delay, call finished in %v", elapsed)
	}
}

func TestGenerateAuthenticationFailureNotRetried(t *testing.T) {
	adapter := &fakeAdapter{failCount: 100, failWith: NewAuthenticationError("bad key", nil)}
	client := newTestClient(adapter)

	_, err := client.Generate(context.Background(), "hello", nil)
	if !IsAuthentication(err) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
	if adapter.callCount() != 1 {
		t.Errorf("authentication failures must not be retried, got %d calls", adapter.callCount())
	}
}

func TestGenerateEmptyPromptNoNetworkCall(t *testing.T) {
	adapter := &fakeAdapter{}
	client := newTestClient(adapter)

	_, err := client.Generate(context.Background(), "   ", nil)
	if KindOf(err) != ErrorKindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if adapter.callCount() != 0 {
		t.Errorf("validation failures must not reach the adapter, got %d calls", adapter.callCount())
	}
}

func TestChatEmptyMessagesNoNetworkCall(t *testing.T) {
	adapter := &fakeAdapter{}
	client := newTestClient(adapter)

	_, err := client.Chat(context.Background(), nil, nil)
	if KindOf(err) != ErrorKindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if adapter.callCount() != 0 {
		t.Errorf("empty chat must not reach the adapter, got %d calls", adapter.callCount())
	}
}

func TestGenerateInvalidConfigRejectedBeforeCall(t *testing.T) {
	adapter := &fakeAdapter{}
	client := newTestClient(adapter)

	_, err := client.Generate(context.Background(), "hello", &GenerationConfig{Temperature: lo.ToPtr(3.0)})
	if KindOf(err) != ErrorKindInvalidConfiguration {
		t.Fatalf("expected invalid_configuration, got %v", err)
	}
	if adapter.callCount() != 0 {
		t.Errorf("invalid config must not reach the adapter, got %d calls", adapter.callCount())
	}
}

func TestGenerateTimeoutRetriedAndClassified(t *testing.T) {
	adapter := &fakeAdapter{block: true}
	client := newTestClient(adapter, WithTimeout(10*time.Millisecond), WithMaxAttempts(2))

	_, err := client.Generate(context.Background(), "hello", nil)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if adapter.callCount() != 2 {
		t.Errorf("timeouts are transient and should be retried, got %d calls", adapter.callCount())
	}
}

func TestAsyncMatchesSyncBehavior(t *testing.T) {
	adapter := &fakeAdapter{failCount: 1, failWith: NewConnectionError("refused", nil)}
	client := newTestClient(adapter)

	out := <-client.GenerateAsync(context.Background(), "hello", nil)
	if out.Err != nil {
		t.Fatalf("expected async success, got %v", out.Err)
	}
	if out.Result.Text != "echo:hello:temp=0.70" {
		t.Errorf("unexpected async result %q", out.Result.Text)
	}
	if adapter.callCount() != 2 {
		t.Errorf("async surface must apply the same retry policy, got %d calls", adapter.callCount())
	}
}

func TestChatLastErrorSurfacedOnExhaustion(t *testing.T) {
	adapter := &fakeAdapter{failCount: 100, failWith: NewProviderError("bad gateway", 502, nil)}
	client := newTestClient(adapter, WithMaxAttempts(2))

	_, err := client.Chat(context.Background(), []Message{NewUserMessage("hi")}, nil)
	if KindOf(err) != ErrorKindProvider {
		t.Fatalf("expected the final provider classification, got %v", err)
	}
	var llmErr *Error
	if !errors.As(err, &llmErr) || llmErr.StatusCode != 502 {
		t.Errorf("expected the last error (status 502) unchanged, got %v", err)
	}
}

func TestConcurrentCallsUseOwnConfig(t *testing.T) {
	adapter := &fakeAdapter{}
	client := newTestClient(adapter)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			temp := float64(i) / 10.0
			result, err := client.Generate(context.Background(), fmt.Sprintf("p%d", i), &GenerationConfig{Temperature: lo.ToPtr(temp)})
			if err != nil {
				t.Errorf("call %d failed: %v", i, err)
				return
			}
			want := fmt.Sprintf("echo:p%d:temp=%.2f", i, temp)
			if result.Text != want {
				t.Errorf("call %d got %q, want %q (cross-call config leakage)", i, result.Text, want)
			}
		}(i)
	}
	wg.Wait()
}

func TestCancellationAbortsRetryLoop(t *testing.T) {
	adapter := &fakeAdapter{failCount: 100, failWith: NewConnectionError("refused", nil)}
	client := newTestClient(adapter, WithBackoff(time.Second, time.Second), WithMaxAttempts(5))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	_, err := client.Generate(ctx, "hello", nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(started) > 500*time.Millisecond {
		t.Error("cancellation should abort the retry loop without waiting out the backoff")
	}
	if adapter.callCount() != 1 {
		t.Errorf("expected no further attempts after cancellation, got %d calls", adapter.callCount())
	}
}
