// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestLoopAttributes(t *testing.T) {
	attrs := LoopAttributes("run-7f3a", "qwen3:8b", 4, 40)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrLoopRunID:     attribute.StringValue("run-7f3a"),
		AttrLoopModel:     attribute.StringValue("qwen3:8b"),
		AttrLoopIteration: attribute.IntValue(4),
		AttrLoopMaxIter:   attribute.IntValue(40),
	})
}

func TestLoopAttributesOmitsZeroFields(t *testing.T) {
	attrs := LoopAttributes("run-7f3a", "", 0, 0)

	if len(attrs) != 1 {
		t.Fatalf("expected only run_id, got %d attributes", len(attrs))
	}
	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrLoopRunID: attribute.StringValue("run-7f3a"),
	})
}

func TestSessionAttributes(t *testing.T) {
	attrs := SessionAttributes("b2c9d1", "build", "data/outcomes/20260401_100000")

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrSessionID:         attribute.StringValue("b2c9d1"),
		AttrSessionKind:       attribute.StringValue("build"),
		AttrSessionOutcomeDir: attribute.StringValue("data/outcomes/20260401_100000"),
	})
}

func TestConversationAttributes(t *testing.T) {
	attrs := ConversationAttributes(true, 12, "window")

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrConversationEnabled:  attribute.BoolValue(true),
		AttrConversationMsgCount: attribute.IntValue(12),
		AttrConversationStrategy: attribute.StringValue("window"),
	})
}

func TestConversationAttributesDisabled(t *testing.T) {
	attrs := ConversationAttributes(false, 12, "window")

	if len(attrs) != 1 {
		t.Fatalf("expected only the enabled flag, got %d attributes", len(attrs))
	}
	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrConversationEnabled: attribute.BoolValue(false),
	})
}

func TestMemoryAttributes(t *testing.T) {
	attrs := MemoryAttributes(true, "entity_index", 5, true)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrMemoryEnabled:   attribute.BoolValue(true),
		AttrMemoryType:      attribute.StringValue("entity_index"),
		AttrMemoryRetrieved: attribute.IntValue(5),
		AttrMemoryStored:    attribute.BoolValue(true),
	})
}

func TestCapabilityCallAttributes(t *testing.T) {
	attrs := CapabilityCallAttributes("add_subclass", "call-3", "builtin", 82.4, true)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrCapabilityName:       attribute.StringValue("add_subclass"),
		AttrCapabilityCallID:     attribute.StringValue("call-3"),
		AttrCapabilitySource:     attribute.StringValue("builtin"),
		AttrCapabilityDurationMs: attribute.Float64Value(82.4),
		AttrCapabilitySuccess:    attribute.BoolValue(true),
	})
}

func TestCapabilityArgsResultTruncation(t *testing.T) {
	args := strings.Repeat("a", 600)
	result := strings.Repeat("r", 700)

	// Truncated payloads end at maxLen plus the ellipsis.
	for _, kv := range CapabilityArgsResult(args, result, 500) {
		if got := len(kv.Value.AsString()); got != 503 {
			t.Errorf("%s: len=%d, want 503", kv.Key, got)
		}
	}
}

func TestCapabilitySetAttributes(t *testing.T) {
	names := []string{"add_class", "add_property", "query_ontology"}
	attrs := CapabilitySetAttributes(9, 7, 2, names)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrCapabilitiesCount:        attribute.IntValue(9),
		AttrCapabilitiesBuiltinCount: attribute.IntValue(7),
		AttrCapabilitiesMCPCount:     attribute.IntValue(2),
	})

	set := attribute.NewSet(attrs...)
	got, ok := set.Value(AttrCapabilitiesNames)
	if !ok {
		t.Fatal("capability names attribute missing")
	}
	if len(got.AsStringSlice()) != 3 {
		t.Errorf("expected 3 capability names, got %d", len(got.AsStringSlice()))
	}
}

func TestLLMAttributes(t *testing.T) {
	attrs := LLMAttributes("qwen3:8b", "ollama", 7, 2)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrLLMModel:     attribute.StringValue("qwen3:8b"),
		AttrLLMProvider:  attribute.StringValue("ollama"),
		AttrLLMMessages:  attribute.IntValue(7),
		AttrLLMToolCalls: attribute.IntValue(2),
	})
}

func TestLLMUsageAttributes(t *testing.T) {
	attrs := LLMUsageAttributes(850, 120, 2310.5, "tool_calls")

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrLLMTokensInput:  attribute.IntValue(850),
		AttrLLMTokensOutput: attribute.IntValue(120),
		AttrLLMTokensTotal:  attribute.IntValue(970),
		AttrLLMDurationMs:   attribute.Float64Value(2310.5),
		AttrLLMFinishReason: attribute.StringValue("tool_calls"),
	})
}

func TestEntityAttributes(t *testing.T) {
	attrs := EntityAttributes(14, 6, 31)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrEntityClasses:     attribute.IntValue(14),
		AttrEntityProperties:  attribute.IntValue(6),
		AttrEntityIndividuals: attribute.IntValue(31),
	})
}

func TestQueryAttributes(t *testing.T) {
	attrs := QueryAttributes("sparql", "SELECT ?s WHERE { ?s ?p ?o }", 4)

	assertAttributes(t, attrs, map[attribute.Key]attribute.Value{
		AttrQueryDialect: attribute.StringValue("sparql"),
		AttrQueryText:    attribute.StringValue("SELECT ?s WHERE { ?s ?p ?o }"),
		AttrQueryRows:    attribute.IntValue(4),
	})
}

func TestQueryAttributesTruncatesText(t *testing.T) {
	attrs := QueryAttributes("datalog", strings.Repeat("instance_of(X, person). ", 20), 0)

	set := attribute.NewSet(attrs...)
	got, ok := set.Value(AttrQueryText)
	if !ok {
		t.Fatal("query text attribute missing")
	}
	if n := len(got.AsString()); n != 203 {
		t.Errorf("text len=%d, want 203 after truncation", n)
	}
}

// assertAttributes fails the test for every expected attribute that is
// missing from attrs or carries the wrong value.
func assertAttributes(t *testing.T, attrs []attribute.KeyValue, want map[attribute.Key]attribute.Value) {
	t.Helper()

	set := attribute.NewSet(attrs...)
	for key, wantVal := range want {
		got, ok := set.Value(key)
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}
		if got != wantVal {
			t.Errorf("attribute %s: got %s, want %s", key, got.Emit(), wantVal.Emit())
		}
	}
}
