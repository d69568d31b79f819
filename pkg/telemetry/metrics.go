// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ontoforge/ontoforge/pkg/errors"
)

// Metrics tracks loop progress, capability outcomes, and error recovery
// for production monitoring. A nil *Metrics is a no-op receiver, so callers
// record unconditionally and only the bootstrap decides whether metrics
// are on.
type Metrics struct {
	errorCounter       metric.Int64Counter
	recoveryCounter    metric.Int64Counter
	iterationCounter   metric.Int64Counter
	capabilityCounter  metric.Int64Counter
	capabilityDuration metric.Float64Histogram
	tokenCounter       metric.Int64Counter
	breakerState       metric.Int64Gauge
}

// NewMetrics registers the OntoForge instruments on the global meter
// provider.
func NewMetrics(ctx context.Context) (*Metrics, error) {
	meter := otel.Meter("ontoforge/metrics")

	errorCounter, err := meter.Int64Counter(
		"ontoforge.errors.total",
		metric.WithDescription("Errors observed, by code and component"),
	)
	if err != nil {
		return nil, err
	}

	recoveryCounter, err := meter.Int64Counter(
		"ontoforge.errors.recovered",
		metric.WithDescription("Errors the loop recovered from, by code"),
	)
	if err != nil {
		return nil, err
	}

	iterationCounter, err := meter.Int64Counter(
		"ontoforge.loop.iterations",
		metric.WithDescription("Loop iterations, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	capabilityCounter, err := meter.Int64Counter(
		"ontoforge.capability.invocations",
		metric.WithDescription("Capability invocations, by name and outcome"),
	)
	if err != nil {
		return nil, err
	}

	capabilityDuration, err := meter.Float64Histogram(
		"ontoforge.capability.duration",
		metric.WithDescription("Capability handler latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tokenCounter, err := meter.Int64Counter(
		"ontoforge.llm.tokens",
		metric.WithDescription("Model tokens consumed, by direction"),
	)
	if err != nil {
		return nil, err
	}

	breakerState, err := meter.Int64Gauge(
		"ontoforge.circuitbreaker.state",
		metric.WithDescription("Breaker state, by component (0=open, 1=half-open, 2=closed)"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		errorCounter:       errorCounter,
		recoveryCounter:    recoveryCounter,
		iterationCounter:   iterationCounter,
		capabilityCounter:  capabilityCounter,
		capabilityDuration: capabilityDuration,
		tokenCounter:       tokenCounter,
		breakerState:       breakerState,
	}, nil
}

// RecordError counts one error against a component. Wrapped ForgeErrors
// contribute their code and recoverability; anything else counts as UNKNOWN.
func (m *Metrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}

	var fe *errors.ForgeError
	if stderrors.As(err, &fe) {
		m.errorCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("error.code", string(fe.Code)),
				attribute.String("component", component),
				attribute.String("recoverable", fe.RecoverableString()),
			),
		)
		return
	}
	m.errorCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error.code", "UNKNOWN"),
			attribute.String("component", component),
			attribute.String("recoverable", "unknown"),
		),
	)
}

// RecordRecovery counts an error the loop absorbed rather than surfaced,
// such as a retried chat call succeeding.
func (m *Metrics) RecordRecovery(ctx context.Context, errorCode errors.ErrorCode) {
	if m == nil {
		return
	}
	m.recoveryCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("error.code", string(errorCode))),
	)
}

// RecordIteration counts one loop turn. Outcome is one of "capabilities",
// "answer", "provider_retry", or "exhausted".
func (m *Metrics) RecordIteration(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.iterationCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordCapabilityCall counts one invocation and records its latency.
func (m *Metrics) RecordCapabilityCall(ctx context.Context, capability string, success bool, durationMs float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "fault"
	}
	m.capabilityCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("capability", capability),
			attribute.String("outcome", outcome),
		),
	)
	m.capabilityDuration.Record(ctx, durationMs,
		metric.WithAttributes(attribute.String("capability", capability)),
	)
}

// RecordTokens adds one chat call's token usage.
func (m *Metrics) RecordTokens(ctx context.Context, input, output int64) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokenCounter.Add(ctx, input,
			metric.WithAttributes(attribute.String("direction", "input")),
		)
	}
	if output > 0 {
		m.tokenCounter.Add(ctx, output,
			metric.WithAttributes(attribute.String("direction", "output")),
		)
	}
}

// RecordCircuitBreakerState gauges a breaker (0=open, 1=half-open, 2=closed).
func (m *Metrics) RecordCircuitBreakerState(ctx context.Context, component string, state int64) {
	if m == nil {
		return
	}
	m.breakerState.Record(ctx, state,
		metric.WithAttributes(attribute.String("component", component)),
	)
}
