// Package agent implements the bounded capability loop that drives ontology
// construction. A Loop holds a conversation with a model provider: each
// iteration sends the transcript, executes whatever capability calls the
// model requested, appends the results, and goes around again. The loop
// terminates when the model answers in plain text or the iteration budget
// runs out. Provider faults consume an iteration and are retried with the
// same transcript after a fixed delay, so a flaky backend degrades progress
// instead of aborting the run.
package agent

import (
	"log/slog"
	"time"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/memory"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

const (
	// DefaultMaxIterations bounds a build conversation.
	DefaultMaxIterations = 80

	// DefaultRetryDelay is how long the loop waits after a provider fault
	// before retrying.
	DefaultRetryDelay = 15 * time.Second
)

// Backoff controls how the loop reacts to provider faults: wait Delay, spend
// the iteration, retry with the same transcript. MaxRetries bounds
// consecutive faults; zero or negative means faults are bounded only by the
// iteration budget.
type Backoff struct {
	Delay      time.Duration
	MaxRetries int
}

// Result is the outcome of one loop run.
type Result struct {
	// Text is the model's final plain-text answer. Empty when Exhausted.
	Text string
	// Iterations is how many provider calls the run consumed, including
	// faulted ones.
	Iterations int
	// Usage accumulates token counts across all successful provider calls.
	Usage llm.Usage
	// Exhausted reports that the iteration budget ran out before the model
	// produced a plain-text answer.
	Exhausted bool
}

// Loop drives one model conversation against a capability registry.
type Loop struct {
	provider      llm.Provider
	registry      *capability.Registry
	model         string
	maxIterations int
	backoff       Backoff
	verbose       bool
	sessionID     string
	logger        *slog.Logger
	recorder      audit.Recorder
	conversation  memory.ConversationMemory
	metrics       *telemetry.Metrics
}

// Option configures a Loop.
type Option func(*Loop)

// WithModel sets the model identifier sent on every provider call.
func WithModel(model string) Option {
	return func(l *Loop) {
		l.model = model
	}
}

// WithMaxIterations sets the iteration budget.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithBackoff sets the provider-fault backoff policy.
func WithBackoff(b Backoff) Option {
	return func(l *Loop) {
		if b.Delay > 0 {
			l.backoff.Delay = b.Delay
		}
		l.backoff.MaxRetries = b.MaxRetries
	}
}

// WithVerbose enables per-iteration progress logging at info level.
func WithVerbose(verbose bool) Option {
	return func(l *Loop) {
		l.verbose = verbose
	}
}

// WithSessionID tags audit records and journaled messages with the owning
// session.
func WithSessionID(id string) Option {
	return func(l *Loop) {
		l.sessionID = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithAudit sets the recorder that receives one record per capability
// invocation.
func WithAudit(recorder audit.Recorder) Option {
	return func(l *Loop) {
		l.recorder = recorder
	}
}

// WithConversation journals the messages the loop appends during a run
// (assistant turns, capability results, the final answer) into conversation
// memory under the loop's session id.
func WithConversation(mem memory.ConversationMemory) Option {
	return func(l *Loop) {
		l.conversation = mem
	}
}

// WithMetrics sets the metrics sink for iteration, capability, and token
// instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// New creates a loop over the given provider and capability registry.
func New(provider llm.Provider, registry *capability.Registry, opts ...Option) (*Loop, error) {
	if provider == nil {
		return nil, errors.New(errors.CodeInvalidInput, "loop requires a provider", nil)
	}
	if registry == nil {
		return nil, errors.New(errors.CodeInvalidInput, "loop requires a capability registry", nil)
	}

	l := &Loop{
		provider:      provider,
		registry:      registry,
		maxIterations: DefaultMaxIterations,
		backoff:       Backoff{Delay: DefaultRetryDelay},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Model returns the configured model identifier.
func (l *Loop) Model() string { return l.model }

// MaxIterations returns the iteration budget.
func (l *Loop) MaxIterations() int { return l.maxIterations }
