// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/memory"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// auditOutcomeLimit bounds the payload snippet stored per audit record.
const auditOutcomeLimit = 2000

// Run drives one conversation to completion. The transcript starts from the
// given messages; the caller keeps ownership of the slice, the loop works on
// a copy.
//
// A run ends one of three ways: the model answers in plain text (Result.Text),
// the iteration budget runs out (Result.Exhausted), or provider faults exceed
// the backoff policy (a PROVIDER_FAULT error). Capability faults never end a
// run; they come back to the model as error payloads it can correct on the
// next turn.
func (l *Loop) Run(ctx context.Context, messages []llm.Message) (*Result, error) {
	runID := uuid.NewString()
	defs := l.registry.Definitions()

	tracer := otel.Tracer("ontoforge/agent")
	ctx, span := tracer.Start(ctx, "Loop.Run")
	defer span.End()
	traceID, spanID := traceIDs(span)
	log := l.logger

	span.SetAttributes(telemetry.LoopAttributes(runID, l.model, 0, l.maxIterations)...)
	builtin, mcp := l.registry.SourceCounts()
	span.SetAttributes(telemetry.CapabilitySetAttributes(builtin+mcp, builtin, mcp, l.registry.Names())...)
	span.SetAttributes(telemetry.ConversationAttributes(l.conversation != nil, len(messages), "")...)
	if l.sessionID != "" {
		span.SetAttributes(attribute.String(telemetry.AttrSessionID, l.sessionID))
	}

	log.Info("loop.run.start",
		slog.String("run_id", runID),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
		slog.String("session_id", l.sessionID),
		slog.String("model", l.model),
		slog.Int("max_iterations", l.maxIterations),
		slog.Int("capabilities", len(defs)),
	)

	transcript := make([]llm.Message, len(messages))
	copy(transcript, messages)

	start := time.Now()
	var usage llm.Usage
	consecutiveFaults := 0

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.CodeContextLost, "run canceled", err).
				WithContext("run_id", runID).
				WithContext("iteration", iteration+1)
		}

		span.AddEvent("loop.iteration", trace.WithAttributes(
			attribute.Int(telemetry.AttrLoopIteration, iteration+1),
		))
		if l.verbose {
			log.Info("loop.iteration",
				slog.String("run_id", runID),
				slog.Int("iteration", iteration+1),
				slog.Int("max_iterations", l.maxIterations),
			)
		} else {
			log.Debug("loop.iteration",
				slog.String("run_id", runID),
				slog.Int("iteration", iteration+1),
				slog.Int("max_iterations", l.maxIterations),
			)
		}

		resp, err := l.chat(ctx, transcript, defs, iteration)
		if err != nil {
			consecutiveFaults++
			fault := errors.New(errors.CodeProviderFault, "model call failed", err).
				WithRecoverable(true).
				WithContext("run_id", runID).
				WithContext("iteration", iteration+1)
			l.metrics.RecordError(ctx, fault, "loop")
			l.metrics.RecordIteration(ctx, "provider_retry")

			if l.backoff.MaxRetries > 0 && consecutiveFaults > l.backoff.MaxRetries {
				log.Error("loop.llm.error",
					slog.String("run_id", runID),
					slog.String("trace_id", traceID),
					slog.String("span_id", spanID),
					slog.Int("iteration", iteration+1),
					slog.Int("consecutive_faults", consecutiveFaults),
					slog.String("error", err.Error()),
					slog.String("error_code", string(errors.CodeProviderFault)),
				)
				return nil, fault.WithRecoverable(false).
					WithContext("consecutive_faults", consecutiveFaults)
			}

			log.Warn("loop.llm.retry",
				slog.String("run_id", runID),
				slog.String("trace_id", traceID),
				slog.String("span_id", spanID),
				slog.Int("iteration", iteration+1),
				slog.Duration("retry_delay", l.backoff.Delay),
				slog.String("error", err.Error()),
			)
			if serr := sleepCtx(ctx, l.backoff.Delay); serr != nil {
				return nil, errors.New(errors.CodeContextLost, "run canceled during backoff", serr).
					WithContext("run_id", runID).
					WithContext("iteration", iteration+1)
			}
			continue
		}
		if consecutiveFaults > 0 {
			l.metrics.RecordRecovery(ctx, errors.CodeProviderFault)
			consecutiveFaults = 0
		}
		addUsage(&usage, resp.Usage)
		l.metrics.RecordTokens(ctx, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))

		if len(resp.ToolCalls) == 0 {
			l.metrics.RecordIteration(ctx, "answer")
			l.journal(ctx, log, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
			durationMs := time.Since(start).Seconds() * 1000
			span.SetAttributes(attribute.Int(telemetry.AttrLoopIteration, iteration+1))
			span.SetAttributes(telemetry.LLMUsageAttributes(usage.PromptTokens, usage.CompletionTokens, durationMs, "answer")...)
			log.Info("loop.run.complete",
				slog.String("run_id", runID),
				slog.String("trace_id", traceID),
				slog.String("span_id", spanID),
				slog.Int("iterations", iteration+1),
				slog.Int("total_tokens", usage.TotalTokens),
			)
			return &Result{
				Text:       resp.Content,
				Iterations: iteration + 1,
				Usage:      usage,
			}, nil
		}

		l.metrics.RecordIteration(ctx, "capabilities")
		assistant := llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		transcript = append(transcript, assistant)
		l.journal(ctx, log, assistant)

		for _, call := range resp.ToolCalls {
			payload := l.invoke(ctx, log, runID, traceID, spanID, iteration+1, call)
			result := llm.Message{
				Role:       llm.RoleTool,
				Content:    payload,
				ToolCallID: call.ID,
			}
			transcript = append(transcript, result)
			l.journal(ctx, log, result)
		}
	}

	l.metrics.RecordIteration(ctx, "exhausted")
	durationMs := time.Since(start).Seconds() * 1000
	span.SetAttributes(attribute.Int(telemetry.AttrLoopIteration, l.maxIterations))
	span.SetAttributes(telemetry.LLMUsageAttributes(usage.PromptTokens, usage.CompletionTokens, durationMs, "exhausted")...)
	log.Warn("loop.run.exhausted",
		slog.String("run_id", runID),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
		slog.Int("iterations", l.maxIterations),
		slog.Int("total_tokens", usage.TotalTokens),
	)
	return &Result{
		Iterations: l.maxIterations,
		Usage:      usage,
		Exhausted:  true,
	}, nil
}

// chat performs one provider call under its own span.
func (l *Loop) chat(ctx context.Context, transcript []llm.Message, defs []llm.Tool, iteration int) (*llm.ChatResponse, error) {
	llmStart := time.Now()
	llmCtx, llmSpan := otel.Tracer("ontoforge/agent").Start(ctx, "Loop.LLM.Chat", trace.WithAttributes(
		attribute.Int(telemetry.AttrLoopIteration, iteration+1),
	))
	llmSpan.SetAttributes(telemetry.LLMAttributes(l.model, "", len(transcript), 0)...)
	resp, err := l.provider.Chat(llmCtx, llm.ChatRequest{
		Model:    l.model,
		Messages: transcript,
		Tools:    defs,
	})
	llmDurationMs := time.Since(llmStart).Seconds() * 1000
	if resp != nil {
		llmSpan.SetAttributes(telemetry.LLMAttributes(l.model, "", len(transcript), len(resp.ToolCalls))...)
		llmSpan.SetAttributes(telemetry.LLMUsageAttributes(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, llmDurationMs, "")...)
	}
	llmSpan.End()
	return resp, err
}

// invoke runs one capability call, fault-contained, and returns the payload
// for the capability-result turn.
func (l *Loop) invoke(ctx context.Context, log *slog.Logger, runID, traceID, spanID string, iteration int, call llm.ToolCall) string {
	name := call.Function.Name
	args := call.Function.Arguments

	source := capability.SourceBuiltin
	if c, ok := l.registry.Get(name); ok && c.Source != "" {
		source = c.Source
	}

	capStart := time.Now()
	capCtx, capSpan := otel.Tracer("ontoforge/agent").Start(ctx, "Loop.Capability.Call")
	payload, err := l.registry.Execute(capCtx, name, args)
	capDurationMs := time.Since(capStart).Seconds() * 1000
	capSpan.SetAttributes(telemetry.CapabilityCallAttributes(name, call.ID, source, capDurationMs, err == nil)...)
	capSpan.SetAttributes(telemetry.CapabilityArgsResult(args, payload, 500)...)
	capSpan.End()

	l.metrics.RecordCapabilityCall(ctx, name, err == nil, capDurationMs)

	if err != nil {
		l.metrics.RecordError(ctx, err, "capability")
		log.Warn("loop.capability.error",
			slog.String("run_id", runID),
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
			slog.Int("iteration", iteration),
			slog.String("capability", name),
			slog.String("call_id", call.ID),
			slog.String("error", err.Error()),
		)
	} else {
		log.Info("loop.capability.complete",
			slog.String("run_id", runID),
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
			slog.Int("iteration", iteration),
			slog.String("capability", name),
			slog.String("call_id", call.ID),
		)
	}

	if l.recorder != nil {
		inv := audit.Invocation{
			SessionID:  l.sessionID,
			RunID:      runID,
			Iteration:  iteration,
			Capability: name,
			CallID:     call.ID,
			Arguments:  args,
			Outcome:    clip(payload, auditOutcomeLimit),
			StartedAt:  capStart.UTC(),
			Duration:   time.Since(capStart),
		}
		if err != nil {
			inv.Error = err.Error()
		}
		if aerr := l.recorder.Record(ctx, inv); aerr != nil {
			log.Warn("loop.audit.store_error",
				slog.String("run_id", runID),
				slog.String("capability", name),
				slog.String("error", aerr.Error()),
			)
		}
	}

	return payload
}

// journal appends a message to conversation memory when one is configured.
func (l *Loop) journal(ctx context.Context, log *slog.Logger, msg llm.Message) {
	if l.conversation == nil {
		return
	}
	cm := memory.ConversationMessage{
		ID:         uuid.NewString(),
		SessionID:  l.sessionID,
		Role:       string(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		CreatedAt:  time.Now().UTC(),
	}
	if len(msg.ToolCalls) > 0 {
		cm.Metadata = map[string]string{"tool_calls": strings.Join(toolCallNames(msg.ToolCalls), ",")}
	}
	if err := l.conversation.AppendMessage(ctx, l.sessionID, cm); err != nil {
		log.Warn("loop.conversation.store_error",
			slog.String("session_id", l.sessionID),
			slog.String("error", err.Error()),
		)
	}
}

func toolCallNames(calls []llm.ToolCall) []string {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Function.Name
	}
	return names
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func traceIDs(span trace.Span) (string, string) {
	sc := span.SpanContext()
	return sc.TraceID().String(), sc.SpanID().String()
}
