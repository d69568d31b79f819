// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry wires OpenTelemetry tracing, metrics, and trace-aware
// logging for the ontology builder. The attribute helpers here keep span
// metadata consistent across the loop, session, and query layers.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys. The gen_ai.* block follows the OpenTelemetry generative
// AI conventions; everything else lives under the ontoforge.* namespace.
const (
	// Loop attributes
	AttrLoopRunID     = "ontoforge.loop.run_id"
	AttrLoopModel     = "ontoforge.loop.model"
	AttrLoopIteration = "ontoforge.loop.iteration"
	AttrLoopMaxIter   = "ontoforge.loop.max_iterations"

	// Session/Conversation attributes
	AttrSessionID            = "ontoforge.session.id"
	AttrSessionKind          = "ontoforge.session.kind"
	AttrSessionOutcomeDir    = "ontoforge.session.outcome_dir"
	AttrConversationEnabled  = "ontoforge.conversation.enabled"
	AttrConversationMsgCount = "ontoforge.conversation.message_count"
	AttrConversationStrategy = "ontoforge.conversation.truncation_strategy"

	// Memory attributes
	AttrMemoryEnabled   = "ontoforge.memory.enabled"
	AttrMemoryType      = "ontoforge.memory.type"
	AttrMemoryRetrieved = "ontoforge.memory.retrieved_count"
	AttrMemoryStored    = "ontoforge.memory.stored"

	// Capability attributes
	AttrCapabilityName       = "ontoforge.capability.name"
	AttrCapabilityCallID     = "ontoforge.capability.call_id"
	AttrCapabilityArgs       = "ontoforge.capability.arguments"
	AttrCapabilityResult     = "ontoforge.capability.result"
	AttrCapabilityDurationMs = "ontoforge.capability.duration_ms"
	AttrCapabilitySuccess    = "ontoforge.capability.success"
	AttrCapabilitySource     = "ontoforge.capability.source" // "builtin", "mcp"

	// Capability set attributes
	AttrCapabilitiesCount        = "ontoforge.capabilities.count"
	AttrCapabilitiesNames        = "ontoforge.capabilities.names"
	AttrCapabilitiesMCPCount     = "ontoforge.capabilities.mcp_count"
	AttrCapabilitiesBuiltinCount = "ontoforge.capabilities.builtin_count"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
	AttrLLMToolCalls    = "gen_ai.tool_calls"
	AttrLLMFinishReason = "gen_ai.finish_reason"

	// Entity store attributes
	AttrEntityClasses     = "ontoforge.entities.classes"
	AttrEntityProperties  = "ontoforge.entities.properties"
	AttrEntityIndividuals = "ontoforge.entities.individuals"

	// Query attributes
	AttrQueryDialect = "ontoforge.query.dialect"
	AttrQueryText    = "ontoforge.query.text"
	AttrQueryRows    = "ontoforge.query.rows"
)

// payloadAttrLimit caps argument and result payloads recorded on spans.
const payloadAttrLimit = 500

// LoopAttributes describes one agent loop run. Zero-valued fields are
// left off the span.
func LoopAttributes(runID, model string, iteration, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLoopRunID, runID),
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLoopModel, model))
	}
	if iteration > 0 {
		attrs = append(attrs, attribute.Int(AttrLoopIteration, iteration))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrLoopMaxIter, maxIter))
	}
	return attrs
}

// SessionAttributes describes a build or ask session span.
func SessionAttributes(sessionID, kind, outcomeDir string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(AttrSessionKind, kind))
	}
	if outcomeDir != "" {
		attrs = append(attrs, attribute.String(AttrSessionOutcomeDir, outcomeDir))
	}
	return attrs
}

// ConversationAttributes describes transcript journaling state. Details
// are only recorded when journaling is on.
func ConversationAttributes(enabled bool, msgCount int, strategy string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrConversationEnabled, enabled),
	}
	if !enabled {
		return attrs
	}
	attrs = append(attrs, attribute.Int(AttrConversationMsgCount, msgCount))
	if strategy != "" {
		attrs = append(attrs, attribute.String(AttrConversationStrategy, strategy))
	}
	return attrs
}

// MemoryAttributes describes an entity memory store or recall.
func MemoryAttributes(enabled bool, memType string, retrieved int, stored bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrMemoryEnabled, enabled),
	}
	if !enabled {
		return attrs
	}
	if memType != "" {
		attrs = append(attrs, attribute.String(AttrMemoryType, memType))
	}
	if retrieved > 0 {
		attrs = append(attrs, attribute.Int(AttrMemoryRetrieved, retrieved))
	}
	if stored {
		attrs = append(attrs, attribute.Bool(AttrMemoryStored, stored))
	}
	return attrs
}

// CapabilityCallAttributes describes one capability invocation.
func CapabilityCallAttributes(name, callID, source string, durationMs float64, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCapabilityName, name),
		attribute.String(AttrCapabilityCallID, callID),
		attribute.String(AttrCapabilitySource, source),
		attribute.Float64(AttrCapabilityDurationMs, durationMs),
		attribute.Bool(AttrCapabilitySuccess, success),
	}
}

// CapabilityArgsResult records the invocation payloads, clipped so a
// verbose model cannot bloat the span.
func CapabilityArgsResult(args, result string, maxLen int) []attribute.KeyValue {
	if maxLen <= 0 {
		maxLen = payloadAttrLimit
	}
	var attrs []attribute.KeyValue
	if args != "" {
		attrs = append(attrs, attribute.String(AttrCapabilityArgs, clip(args, maxLen)))
	}
	if result != "" {
		attrs = append(attrs, attribute.String(AttrCapabilityResult, clip(result, maxLen)))
	}
	return attrs
}

// CapabilitySetAttributes describes the registry advertised to the model.
func CapabilitySetAttributes(total, builtin, mcp int, names []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrCapabilitiesCount, total),
		attribute.Int(AttrCapabilitiesBuiltinCount, builtin),
		attribute.Int(AttrCapabilitiesMCPCount, mcp),
	}
	if len(names) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrCapabilitiesNames, names))
	}
	return attrs
}

// LLMAttributes describes one chat completion request.
func LLMAttributes(model, provider string, msgCount int, toolCallCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if toolCallCount > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMToolCalls, toolCallCount))
	}
	return attrs
}

// LLMUsageAttributes records token spend for one completion.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64, finishReason string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if total := inputTokens + outputTokens; total > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, total))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	if finishReason != "" {
		attrs = append(attrs, attribute.String(AttrLLMFinishReason, finishReason))
	}
	return attrs
}

// EntityAttributes records store sizes after a merge or snapshot.
func EntityAttributes(classes, properties, individuals int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrEntityClasses, classes),
		attribute.Int(AttrEntityProperties, properties),
		attribute.Int(AttrEntityIndividuals, individuals),
	}
}

// QueryAttributes describes one evaluator run. The query text is clipped
// to keep spans readable.
func QueryAttributes(dialect, text string, rows int) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if dialect != "" {
		attrs = append(attrs, attribute.String(AttrQueryDialect, dialect))
	}
	if text != "" {
		attrs = append(attrs, attribute.String(AttrQueryText, clip(text, 200)))
	}
	if rows >= 0 {
		attrs = append(attrs, attribute.Int(AttrQueryRows, rows))
	}
	return attrs
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
