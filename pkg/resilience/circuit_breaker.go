// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/ontoforge/ontoforge/pkg/errors"
)

// CircuitBreakerState names the three classic breaker states.
type CircuitBreakerState string

const (
	// StateClosed lets calls through and counts failures.
	StateClosed CircuitBreakerState = "closed"

	// StateOpen fails fast without calling the dependency.
	StateOpen CircuitBreakerState = "open"

	// StateHalfOpen lets probe calls through to test recovery.
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig configures thresholds and the open window.
type CircuitBreakerConfig struct {
	// FailureThreshold is how many consecutive failures trip the
	// circuit.
	FailureThreshold int

	// SuccessThreshold is how many probe successes close it again.
	SuccessThreshold int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// Name identifies the breaker in errors and logs.
	Name string
}

// CircuitBreaker fails fast once a dependency keeps refusing, instead
// of stacking doomed calls behind it. After FailureThreshold
// consecutive failures the circuit opens; once Timeout passes, probe
// calls go through, and SuccessThreshold probe successes close the
// circuit. A failed probe reopens it.
type CircuitBreaker struct {
	config       CircuitBreakerConfig
	state        CircuitBreakerState
	failures     int
	successes    int
	lastFailTime time.Time
	mu           sync.RWMutex
}

// NewCircuitBreaker creates a closed breaker, filling in defaults for
// unset config fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "circuit_breaker"
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Call runs fn unless the circuit is open, and feeds the outcome back
// into the state machine. An open circuit returns a recoverable
// CodeInternal error without invoking fn. Calls serialize through the
// breaker lock.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) <= cb.config.Timeout {
			return errors.New(errors.CodeInternal, "circuit breaker open", nil).
				WithContext("breaker", cb.config.Name).
				WithRecoverable(true)
		}
		// Open window elapsed, start probing.
		cb.state = StateHalfOpen
		cb.failures = 0
		cb.successes = 0
	}

	if err := ctx.Err(); err != nil {
		return errors.New(errors.CodeContextLost, "context canceled before call", err).
			WithContext("breaker", cb.config.Name)
	}

	err := fn()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// onFailure must run under the lock.
func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailTime = time.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.failures = 0
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.failures = 0
		}
	}
}

// onSuccess must run under the lock.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.successes = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}

// State reports the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// Open forces the breaker open, as if a failure just happened.
func (cb *CircuitBreaker) Open() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateOpen
	cb.lastFailTime = time.Now()
}
