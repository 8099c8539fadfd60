package resilience

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a remote service failure at the client boundary so
// that retry decisions are a pure function over a closed set of variants,
// rather than substring matching on error messages.
type ErrorKind string

const (
	KindRateLimited      ErrorKind = "rate_limited"
	KindServerError      ErrorKind = "server_error"
	KindTimeout          ErrorKind = "timeout"
	KindConnectionFailed ErrorKind = "connection_failed"
	KindValidation       ErrorKind = "validation"
	KindBadRequest       ErrorKind = "bad_request"
	KindUnknown          ErrorKind = "unknown"
)

// Retryable reports whether a failure of this kind is worth retrying.
// Rate limiting, 5xx responses, timeouts and connection failures are
// transient; validation and 4xx failures are not.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServerError, KindTimeout, KindConnectionFailed:
		return true
	default:
		return false
	}
}

// ServiceError is a remote service failure tagged with its classification.
// Clients construct these at the HTTP boundary; everything above the client
// layer decides behavior from the Kind alone.
type ServiceError struct {
	Service string
	Kind    ErrorKind
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Kind)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a tagged service error
func NewServiceError(service string, kind ErrorKind, cause error) *ServiceError {
	return &ServiceError{Service: service, Kind: kind, Cause: cause}
}

// KindOf extracts the error kind from an error chain. Context cancellation
// and deadline expiry are reported as KindUnknown so callers never treat a
// cancelled request as a service failure.
func KindOf(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the error chain carries a retryable kind.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return KindOf(err).Retryable()
}

// CircuitBreakerOpenError is returned when a call is short-circuited
// because the breaker for the target service is open.
type CircuitBreakerOpenError struct {
	ServiceName  string
	FailureCount int
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s after %d failures", e.ServiceName, e.FailureCount)
}

// RetryExhaustedError is returned when an operation did not succeed within
// the configured attempt budget. RetryCount reports the configured maximum,
// not the number of attempts actually made: a non-retryable failure stops
// after one attempt but still reports the full budget, so callers can
// distinguish budget size from cause via LastErr.
type RetryExhaustedError struct {
	RetryCount int
	LastErr    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d retries: %v", e.RetryCount, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}
