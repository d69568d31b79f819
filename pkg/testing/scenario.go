// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides utilities for testing agent loops and sessions.
//
// This package includes:
//   - Scenario definitions for declarative loop testing
//   - A scripted mock provider with capability-call simulation
//   - Fluent assertion helpers for chat requests and responses
//   - An invocation log for verifying which capabilities ran
//
// Example usage:
//
//	scenario := testing.NewScenario("class lookup").
//	    WithInput("Which classes exist?").
//	    ExpectOutput(testing.Contains("Warehouse")).
//	    ExpectCapabilityCall("get_classes")
//
//	result := scenario.Run(t, runner)
//	result.Assert(t, scenario)
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/llm"
)

// Scenario defines a test scenario for one loop conversation.
type Scenario struct {
	name          string
	description   string
	input         string
	context       context.Context
	timeout       time.Duration
	expectations  []Expectation
	log           *InvocationLog
	setupFuncs    []func() error
	teardownFuncs []func() error
}

// Expectation is a condition verified against the result after a scenario
// runs.
type Expectation interface {
	Check(result *ScenarioResult) error
	Description() string
}

// ScenarioResult contains the outcome of running a scenario.
type ScenarioResult struct {
	Output      string
	Error       error
	Invocations []audit.Invocation
	Duration    time.Duration
	TokenUsage  llm.Usage
}

// NewScenario creates a scenario with the given name and a 30 second
// timeout.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:    name,
		timeout: 30 * time.Second,
		context: context.Background(),
	}
}

// WithDescription sets a free-form description.
func (s *Scenario) WithDescription(desc string) *Scenario {
	s.description = desc
	return s
}

// WithInput sets the prompt handed to the runner.
func (s *Scenario) WithInput(input string) *Scenario {
	s.input = input
	return s
}

// WithContext sets the base context the timeout derives from.
func (s *Scenario) WithContext(ctx context.Context) *Scenario {
	s.context = ctx
	return s
}

// WithTimeout bounds the run.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithInvocationLog attaches a log whose records become the scenario
// result's Invocations. Wire the same log into the loop under test as its
// audit recorder.
func (s *Scenario) WithInvocationLog(log *InvocationLog) *Scenario {
	s.log = log
	return s
}

// WithSetup registers a function to run before the scenario.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setupFuncs = append(s.setupFuncs, fn)
	return s
}

// WithTeardown registers a function to run after the scenario.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardownFuncs = append(s.teardownFuncs, fn)
	return s
}

// Expect adds an expectation to the scenario.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectOutput expects the final text to satisfy the matcher.
func (s *Scenario) ExpectOutput(matcher StringMatcher) *Scenario {
	return s.Expect(expectation{
		desc: fmt.Sprintf("output %s", matcher.Description()),
		check: func(r *ScenarioResult) error {
			if !matcher.Match(r.Output) {
				return fmt.Errorf("output %q does not match: %s", r.Output, matcher.Description())
			}
			return nil
		},
	})
}

// ExpectNoError expects the runner to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(expectation{
		desc: "no error",
		check: func(r *ScenarioResult) error {
			if r.Error != nil {
				return fmt.Errorf("expected no error, got: %v", r.Error)
			}
			return nil
		},
	})
}

// ExpectError expects a runner error whose text satisfies the matcher.
func (s *Scenario) ExpectError(matcher StringMatcher) *Scenario {
	return s.Expect(expectation{
		desc: fmt.Sprintf("error %s", matcher.Description()),
		check: func(r *ScenarioResult) error {
			if r.Error == nil {
				return fmt.Errorf("expected error matching %s, got nil", matcher.Description())
			}
			if !matcher.Match(r.Error.Error()) {
				return fmt.Errorf("error %q does not match: %s", r.Error.Error(), matcher.Description())
			}
			return nil
		},
	})
}

// ExpectCapabilityCall expects the named capability among the logged
// invocations.
func (s *Scenario) ExpectCapabilityCall(name string) *Scenario {
	return s.Expect(expectation{
		desc: fmt.Sprintf("capability %q invoked", name),
		check: func(r *ScenarioResult) error {
			for _, inv := range r.Invocations {
				if inv.Capability == name {
					return nil
				}
			}
			return fmt.Errorf("capability %q was not invoked", name)
		},
	})
}

// ExpectNoCapabilityCalls expects the loop to answer without invoking
// anything.
func (s *Scenario) ExpectNoCapabilityCalls() *Scenario {
	return s.Expect(expectation{
		desc: "no capability calls",
		check: func(r *ScenarioResult) error {
			if len(r.Invocations) == 0 {
				return nil
			}
			names := make([]string, len(r.Invocations))
			for i, inv := range r.Invocations {
				names[i] = inv.Capability
			}
			return fmt.Errorf("expected no capability calls, got: %v", names)
		},
	})
}

// ExpectMinDuration expects the run to take at least d.
func (s *Scenario) ExpectMinDuration(d time.Duration) *Scenario {
	return s.Expect(expectation{
		desc: fmt.Sprintf("duration >= %v", d),
		check: func(r *ScenarioResult) error {
			if r.Duration < d {
				return fmt.Errorf("duration %v is less than minimum %v", r.Duration, d)
			}
			return nil
		},
	})
}

// ExpectMaxDuration expects the run to finish within d.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(expectation{
		desc: fmt.Sprintf("duration <= %v", d),
		check: func(r *ScenarioResult) error {
			if r.Duration > d {
				return fmt.Errorf("duration %v exceeds maximum %v", r.Duration, d)
			}
			return nil
		},
	})
}

// expectation pairs a check with its printable description.
type expectation struct {
	desc  string
	check func(*ScenarioResult) error
}

func (e expectation) Check(r *ScenarioResult) error { return e.check(r) }
func (e expectation) Description() string           { return e.desc }

// Runner is the interface for running scenarios: one input prompt in, the
// final text out. Sessions satisfy it directly; a bare loop is adapted with
// RunnerFunc plus its system prompt.
type Runner interface {
	Run(ctx context.Context, input string) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, input string) (string, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// Run executes the scenario against the given runner.
func (s *Scenario) Run(t *testing.T, runner Runner) *ScenarioResult {
	t.Helper()

	for _, setup := range s.setupFuncs {
		if err := setup(); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}

	defer func() {
		for _, teardown := range s.teardownFuncs {
			if err := teardown(); err != nil {
				t.Errorf("scenario %q teardown failed: %v", s.name, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(s.context, s.timeout)
	defer cancel()

	start := time.Now()
	output, err := runner.Run(ctx, s.input)
	duration := time.Since(start)

	result := &ScenarioResult{
		Output:   output,
		Error:    err,
		Duration: duration,
	}
	if s.log != nil {
		result.Invocations = s.log.Invocations()
	}
	return result
}

// Assert checks all expectations and reports failures to the test.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()

	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("expectation %q failed: %v", exp.Description(), err)
		}
	}
}

// StringMatcher decides whether a string satisfies an expectation.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// matcherFunc pairs a predicate with its printable description.
type matcherFunc struct {
	desc  string
	match func(string) bool
}

func (m matcherFunc) Match(s string) bool { return m.match(s) }
func (m matcherFunc) Description() string { return m.desc }

// Contains matches strings containing substr.
func Contains(substr string) StringMatcher {
	return matcherFunc{
		desc:  fmt.Sprintf("contains %q", substr),
		match: func(s string) bool { return strings.Contains(s, substr) },
	}
}

// Equals matches exactly the expected string.
func Equals(expected string) StringMatcher {
	return matcherFunc{
		desc:  fmt.Sprintf("equals %q", expected),
		match: func(s string) bool { return s == expected },
	}
}

// Regex matches against a regular expression. An invalid pattern matches
// nothing.
func Regex(pattern string) StringMatcher {
	re, err := regexp.Compile(pattern)
	return matcherFunc{
		desc:  fmt.Sprintf("matches regex %q", pattern),
		match: func(s string) bool { return err == nil && re.MatchString(s) },
	}
}

// HasPrefix matches strings starting with prefix.
func HasPrefix(prefix string) StringMatcher {
	return matcherFunc{
		desc:  fmt.Sprintf("has prefix %q", prefix),
		match: func(s string) bool { return strings.HasPrefix(s, prefix) },
	}
}

// HasSuffix matches strings ending with suffix.
func HasSuffix(suffix string) StringMatcher {
	return matcherFunc{
		desc:  fmt.Sprintf("has suffix %q", suffix),
		match: func(s string) bool { return strings.HasSuffix(s, suffix) },
	}
}

// InvocationLog collects capability invocations during a scenario. It
// satisfies audit.Recorder so it can be handed to a loop as its recorder.
type InvocationLog struct {
	mu          sync.RWMutex
	invocations []audit.Invocation
}

var _ audit.Recorder = (*InvocationLog)(nil)

// NewInvocationLog creates an empty invocation log.
func NewInvocationLog() *InvocationLog {
	return &InvocationLog{}
}

// Record implements audit.Recorder.
func (l *InvocationLog) Record(_ context.Context, inv audit.Invocation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = append(l.invocations, inv)
	return nil
}

// Invocations returns a copy of the collected invocations, in call order.
func (l *InvocationLog) Invocations() []audit.Invocation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]audit.Invocation, len(l.invocations))
	copy(out, l.invocations)
	return out
}

// Capabilities returns just the capability names, in call order.
func (l *InvocationLog) Capabilities() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, len(l.invocations))
	for i, inv := range l.invocations {
		names[i] = inv.Capability
	}
	return names
}

// Has reports whether the named capability was invoked.
func (l *InvocationLog) Has(capability string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, inv := range l.invocations {
		if inv.Capability == capability {
			return true
		}
	}
	return false
}

// Count returns the number of collected invocations.
func (l *InvocationLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.invocations)
}

// Reset clears the log for reuse between scenarios.
func (l *InvocationLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invocations = l.invocations[:0]
}
