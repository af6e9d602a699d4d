package llm

import (
	"errors"
	"time"
)

// Error represents a provider-neutral failure. Adapters classify every
// provider-specific failure into one of these before it reaches the
// client; the original error stays reachable through Unwrap.
type Error struct {
	Kind        ErrorKind
	Message     string
	Retryable   bool
	RetryAfter  *time.Duration
	StatusCode  int
	ProviderErr error
}

// ErrorKind represents the category of error.
type ErrorKind string

const (
	ErrorKindInvalidConfiguration ErrorKind = "invalid_configuration"
	ErrorKindInvalidRequest       ErrorKind = "invalid_request"
	ErrorKindUnknownProvider      ErrorKind = "unknown_provider"
	ErrorKindAuthentication       ErrorKind = "authentication"
	ErrorKindRateLimit            ErrorKind = "rate_limit"
	ErrorKindTimeout              ErrorKind = "timeout"
	ErrorKindConnection           ErrorKind = "connection"
	ErrorKindProvider             ErrorKind = "provider"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// KindOf returns the classification of an error, or ErrorKindProvider
// for errors that were never classified.
func KindOf(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ErrorKindProvider
}

// IsRetryable reports whether an error is a transient classification
// eligible for retry under the client's policy.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// IsRateLimit checks if an error is a rate limit error.
func IsRateLimit(err error) bool {
	return KindOf(err) == ErrorKindRateLimit
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrorKindTimeout
}

// IsAuthentication checks if an error is an authentication failure.
func IsAuthentication(err error) bool {
	return KindOf(err) == ErrorKindAuthentication
}

// ExtractRetryAfter extracts the retry-after duration from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

// NewInvalidConfigurationError creates an error for an out-of-range
// generation parameter. field names the offending field.
func NewInvalidConfigurationError(field, message string) *Error {
	return &Error{
		Kind:      ErrorKindInvalidConfiguration,
		Message:   "invalid configuration: " + field + ": " + message,
		Retryable: false,
	}
}

// NewInvalidRequestError creates an error for an empty or malformed
// prompt or message sequence.
func NewInvalidRequestError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindInvalidRequest,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}

// NewUnknownProviderError creates an error for an unregistered provider name.
func NewUnknownProviderError(provider string) *Error {
	return &Error{
		Kind:      ErrorKindUnknownProvider,
		Message:   "unknown provider: " + provider,
		Retryable: false,
	}
}

// NewAuthenticationError creates an error for rejected credentials.
func NewAuthenticationError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindAuthentication,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}

// NewRateLimitError creates a rate limit error. retryAfter, when the
// provider supplied one, overrides the client's computed backoff delay.
func NewRateLimitError(message string, retryAfter *time.Duration, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindRateLimit,
		Message:     message,
		Retryable:   true,
		RetryAfter:  retryAfter,
		ProviderErr: providerErr,
	}
}

// NewTimeoutError creates an error for a round trip that exceeded the
// configured bound.
func NewTimeoutError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindTimeout,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewConnectionError creates an error for a transport-level failure.
func NewConnectionError(message string, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindConnection,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewProviderError creates an error for any other non-2xx or malformed
// provider response. 5xx status codes are treated as transient.
func NewProviderError(message string, statusCode int, providerErr error) *Error {
	return &Error{
		Kind:        ErrorKindProvider,
		Message:     message,
		Retryable:   statusCode >= 500,
		StatusCode:  statusCode,
		ProviderErr: providerErr,
	}
}
