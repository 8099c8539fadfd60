package resilience

import (
	"log"
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

const (
	// DefaultFailureThreshold is the number of consecutive failures that
	// trips a closed breaker open.
	DefaultFailureThreshold = 5

	// DefaultSuccessThreshold is the number of successes required in
	// half-open state before the breaker closes again.
	DefaultSuccessThreshold = 2

	// DefaultOpenTimeout is how long an open breaker waits before letting
	// a probe call through.
	DefaultOpenTimeout = 60 * time.Second
)

// BreakerConfig holds configuration for a circuit breaker
type BreakerConfig struct {
	FailureThreshold int           // Default: 5
	SuccessThreshold int           // Default: 2
	OpenTimeout      time.Duration // Default: 60s
}

// CircuitBreaker guards one remote service. State is mutated only through
// CanAttempt, CallSucceeded and CallFailed, under the breaker's own mutex,
// so it is safe for concurrent callers. Instances are constructor-injected
// rather than package globals; Reset exists for test isolation.
type CircuitBreaker struct {
	serviceName string
	config      BreakerConfig

	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	now             func() time.Time
}

// NewCircuitBreaker creates a circuit breaker for the named service
func NewCircuitBreaker(serviceName string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultSuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	return &CircuitBreaker{
		serviceName: serviceName,
		config:      cfg,
		state:       StateClosed,
		now:         time.Now,
	}
}

// CanAttempt reports whether a call may proceed. In the open state it
// returns a CircuitBreakerOpenError until the open timeout has elapsed, at
// which point the breaker moves to half-open and the transitioning call is
// let through as the probe.
func (cb *CircuitBreaker) CanAttempt() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.config.OpenTimeout {
			log.Printf("[INFO] Circuit breaker for %s transitioning open -> half-open", cb.serviceName)
			cb.state = StateHalfOpen
			cb.successCount = 0
			return nil
		}
		return &CircuitBreakerOpenError{
			ServiceName:  cb.serviceName,
			FailureCount: cb.failureCount,
		}
	}
	return nil
}

// CallSucceeded records a successful call. In half-open state, enough
// consecutive successes close the breaker; in closed state the failure
// count resets.
func (cb *CircuitBreaker) CallSucceeded() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			log.Printf("[INFO] Circuit breaker for %s transitioning half-open -> closed", cb.serviceName)
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

// CallFailed records a failed call. A closed breaker trips open at the
// failure threshold; a half-open breaker re-opens on any failure.
func (cb *CircuitBreaker) CallFailed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			log.Printf("[WARN] Circuit breaker for %s tripped open after %d failures", cb.serviceName, cb.failureCount)
			cb.state = StateOpen
			cb.lastFailureTime = cb.now()
		}
	case StateHalfOpen:
		log.Printf("[WARN] Circuit breaker for %s probe failed, transitioning half-open -> open", cb.serviceName)
		cb.state = StateOpen
		cb.successCount = 0
		cb.lastFailureTime = cb.now()
	}
}

// State returns the current breaker state
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ServiceName returns the name of the guarded service
func (cb *CircuitBreaker) ServiceName() string {
	return cb.serviceName
}

// Reset returns the breaker to its initial closed state. Intended for test
// isolation.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.lastFailureTime = time.Time{}
}
