package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRetryableByKind(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{NewRateLimitError("throttled", nil, nil), true},
		{NewTimeoutError("deadline", nil), true},
		{NewConnectionError("refused", nil), true},
		{NewProviderError("bad gateway", 502, nil), true},
		{NewProviderError("teapot", 418, nil), false},
		{NewAuthenticationError("bad key", nil), false},
		{NewInvalidRequestError("empty", nil), false},
		{NewInvalidConfigurationError("temperature", "out of range"), false},
		{NewUnknownProviderError("qwen"), false},
		{errors.New("unclassified"), false},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.retryable {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(NewRateLimitError("x", nil, nil)) != ErrorKindRateLimit {
		t.Error("expected rate_limit kind")
	}
	if KindOf(NewUnknownProviderError("x")) != ErrorKindUnknownProvider {
		t.Error("expected unknown_provider kind")
	}
	if KindOf(errors.New("plain")) != ErrorKindProvider {
		t.Error("unclassified errors default to provider kind")
	}
}

func TestExtractRetryAfter(t *testing.T) {
	retryAfter := 5 * time.Minute
	err := NewRateLimitError("rate limit", &retryAfter, nil)

	extracted := ExtractRetryAfter(err)
	if extracted == nil {
		t.Fatal("expected non-nil retry after")
	}
	if *extracted != retryAfter {
		t.Errorf("expected retry after %v, got %v", retryAfter, *extracted)
	}

	if ExtractRetryAfter(NewProviderError("some error", 0, nil)) != nil {
		t.Error("expected nil retry after for non-rate-limit error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := NewConnectionError("wrapped", originalErr)
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("expected error to unwrap to original error")
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	inner := NewTimeoutError("deadline", nil)
	wrapped := errors.Join(errors.New("while generating"), inner)
	if !IsTimeout(wrapped) {
		t.Error("classification should survive wrapping")
	}
	if !IsRetryable(wrapped) {
		t.Error("retryability should survive wrapping")
	}
}
