// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience supplies retry with backoff and a circuit breaker.
// OntoForge wraps its outbound network calls in these: embedding
// requests back off on transient failures, and the sparql endpoint
// stops hammering a service that keeps refusing.
package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"time"

	"github.com/ontoforge/ontoforge/pkg/errors"
)

// RetryConfig controls attempts and exponential backoff. The zero
// value is usable but retries nothing; start from DefaultRetryConfig.
type RetryConfig struct {
	// MaxAttempts counts the first try too. Values below 1 mean one
	// attempt.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// Multiplier grows the delay between retries. Zero means 2.0.
	Multiplier float64

	// IsRecoverable decides whether an error is worth another attempt.
	// Nil treats every error as recoverable unless it is a ForgeError
	// flagged otherwise.
	IsRecoverable func(error) bool

	// Jitter spreads each delay by the given fraction in both
	// directions. 0.1 means up to ten percent early or late.
	Jitter float64
}

// DefaultRetryConfig is tuned for short-lived API calls: three
// attempts, 100ms growing to at most 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: isRecoverableDefault,
	}
}

// WithMaxAttempts returns a copy with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(n int) RetryConfig {
	rc.MaxAttempts = n
	return rc
}

// WithInitialDelay returns a copy with InitialDelay set.
func (rc RetryConfig) WithInitialDelay(d time.Duration) RetryConfig {
	rc.InitialDelay = d
	return rc
}

// WithMaxDelay returns a copy with MaxDelay set.
func (rc RetryConfig) WithMaxDelay(d time.Duration) RetryConfig {
	rc.MaxDelay = d
	return rc
}

// WithIsRecoverable returns a copy with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// Do runs fn until it succeeds, the error is not recoverable, or the
// attempts run out. The error from the last attempt is returned as is;
// a context canceled while waiting surfaces as CodeContextLost.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	attempts := rc.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	recoverable := rc.IsRecoverable
	if recoverable == nil {
		recoverable = isRecoverableDefault
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return errors.New(errors.CodeContextLost, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt).
					WithContext("max_attempts", attempts)
			case <-time.After(rc.backoff(attempt - 1)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !recoverable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// DoWithResult is Do for functions that produce a value. On failure the
// zero value of T is returned with the error.
func DoWithResult[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var result T
	err := rc.Do(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// backoff computes the delay before the given retry, starting at
// InitialDelay for retry 1 and growing by Multiplier each time.
func (rc RetryConfig) backoff(retry int) time.Duration {
	mult := rc.Multiplier
	if mult == 0 {
		mult = 2.0
	}

	d := float64(rc.InitialDelay) * math.Pow(mult, float64(retry-1))
	if limit := float64(rc.MaxDelay); limit > 0 && d > limit {
		d = limit
	}
	if rc.Jitter > 0 {
		d += d * rc.Jitter * (2*rand.Float64() - 1)
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}

// isRecoverableDefault trusts the Recoverable flag on a ForgeError
// anywhere in the chain and assumes every other error is transient.
func isRecoverableDefault(err error) bool {
	if err == nil {
		return false
	}
	var fe *errors.ForgeError
	if stderrors.As(err, &fe) {
		return fe.Recoverable
	}
	return true
}
