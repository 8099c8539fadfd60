package resilience

import (
	"context"
	"log"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// RetryConfig holds configuration for the retry executor
type RetryConfig struct {
	MaxAttempts int           // Default: 5
	BaseDelay   time.Duration // Default: 1s
	MaxDelay    time.Duration // Default: 60s
}

// Operation is a fallible unit of work run under retry.
type Operation func(ctx context.Context) error

// RetryExecutor runs operations with exponential backoff. Only failures
// tagged with a retryable ErrorKind are retried; anything else fails after
// a single attempt. Context cancellation stops the loop promptly and is
// returned as-is, never wrapped in RetryExhaustedError.
type RetryExecutor struct {
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor creates a retry executor
func NewRetryExecutor(cfg RetryConfig) *RetryExecutor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	return &RetryExecutor{
		config: cfg,
		sleep:  sleepContext,
	}
}

// Execute runs op until it succeeds, the attempt budget is exhausted, or a
// non-retryable failure occurs. The delay before attempt n+1 is
// min(baseDelay * 2^(n-1), maxDelay).
func (r *RetryExecutor) Execute(ctx context.Context, name string, op Operation) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			// The operation failed because the caller gave up; surface the
			// cancellation rather than counting it against the service.
			return ctxErr
		}

		lastErr = err

		if !IsRetryable(err) {
			log.Printf("[DEBUG] %s: non-retryable failure, not retrying: %v", name, err)
			break
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.backoffDelay(attempt)
		log.Printf("[DEBUG] %s: attempt %d/%d failed, retrying in %v: %v", name, attempt, r.config.MaxAttempts, delay, err)

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	// RetryCount reports the configured budget even when a non-retryable
	// failure stopped the loop after one attempt.
	return &RetryExhaustedError{
		RetryCount: r.config.MaxAttempts,
		LastErr:    lastErr,
	}
}

// backoffDelay returns the delay after the given 1-based attempt number.
func (r *RetryExecutor) backoffDelay(attempt int) time.Duration {
	delay := r.config.BaseDelay << uint(attempt-1)
	if delay > r.config.MaxDelay || delay <= 0 {
		delay = r.config.MaxDelay
	}
	return delay
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
