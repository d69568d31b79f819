// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/llm"
)

// mockRunner returns a canned response, optionally after a delay.
type mockRunner struct {
	response string
	err      error
	delay    time.Duration
}

func (m *mockRunner) Run(ctx context.Context, input string) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func TestScenarioBasic(t *testing.T) {
	runner := &mockRunner{response: "The ontology has 12 classes."}

	scenario := NewScenario("basic test").
		WithInput("How many classes are there?").
		ExpectNoError().
		ExpectOutput(Contains("12 classes"))

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)
}

func TestScenarioWithError(t *testing.T) {
	runner := &mockRunner{err: errors.New("something went wrong")}

	scenario := NewScenario("error test").
		WithInput("Hi").
		ExpectError(Contains("went wrong"))

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)
}

func TestScenarioDuration(t *testing.T) {
	runner := &mockRunner{response: "ok", delay: 50 * time.Millisecond}

	scenario := NewScenario("duration test").
		WithInput("Hi").
		WithTimeout(1 * time.Second).
		ExpectNoError().
		ExpectMinDuration(40 * time.Millisecond).
		ExpectMaxDuration(200 * time.Millisecond)

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)
}

func TestScenarioTimeout(t *testing.T) {
	runner := &mockRunner{response: "ok", delay: 500 * time.Millisecond}

	scenario := NewScenario("timeout test").
		WithInput("Hi").
		WithTimeout(50 * time.Millisecond).
		ExpectError(Contains("context deadline"))

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)
}

func TestScenarioRunnerFunc(t *testing.T) {
	runner := RunnerFunc(func(ctx context.Context, input string) (string, error) {
		return "echo: " + input, nil
	})

	scenario := NewScenario("runner func").
		WithInput("ping").
		ExpectNoError().
		ExpectOutput(Equals("echo: ping"))

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)
}

func TestScenarioCapabilityExpectations(t *testing.T) {
	log := NewInvocationLog()
	runner := RunnerFunc(func(ctx context.Context, input string) (string, error) {
		_ = log.Record(ctx, audit.Invocation{Capability: "get_classes"})
		_ = log.Record(ctx, audit.Invocation{Capability: "query_ontology"})
		return "Warehouse, Pallet", nil
	})

	scenario := NewScenario("capability expectations").
		WithInput("Which classes exist?").
		WithInvocationLog(log).
		ExpectNoError().
		ExpectCapabilityCall("get_classes").
		ExpectCapabilityCall("query_ontology")

	result := scenario.Run(t, runner)
	result.Assert(t, scenario)

	if len(result.Invocations) != 2 {
		t.Fatalf("expected 2 invocations in result, got %d", len(result.Invocations))
	}
}

func TestStringMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher StringMatcher
		input   string
		match   bool
	}{
		{"contains match", Contains("world"), "hello world", true},
		{"contains no match", Contains("foo"), "hello world", false},
		{"equals match", Equals("hello"), "hello", true},
		{"equals no match", Equals("hello"), "Hello", false},
		{"prefix match", HasPrefix("hello"), "hello world", true},
		{"prefix no match", HasPrefix("world"), "hello world", false},
		{"suffix match", HasSuffix("world"), "hello world", true},
		{"suffix no match", HasSuffix("hello"), "hello world", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.matcher.Match(tc.input); got != tc.match {
				t.Errorf("expected match=%v, got %v", tc.match, got)
			}
		})
	}
}

func TestScenarioProvider(t *testing.T) {
	provider := NewScenarioProvider().
		AddResponse("First response").
		AddResponse("Second response")

	resp1, err := provider.Chat(context.Background(), llm.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Content != "First response" {
		t.Errorf("expected 'First response', got %q", resp1.Content)
	}

	resp2, err := provider.Chat(context.Background(), llm.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.Content != "Second response" {
		t.Errorf("expected 'Second response', got %q", resp2.Content)
	}

	// A call past the end of the script fails but still counts.
	_, err = provider.Chat(context.Background(), llm.ChatRequest{})
	if err == nil {
		t.Error("expected error for third call")
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", provider.CallCount())
	}
}

func TestScenarioProviderToolCalls(t *testing.T) {
	toolCall := NewToolCall("get_entities").
		WithID("call_123").
		WithArg("classes", true).
		WithArg("properties", false).
		WithArg("individuals", false).
		Build()

	provider := NewScenarioProvider().
		AddToolCallResponse(toolCall).
		AddResponse("The ontology defines Warehouse and Pallet.")

	resp1, err := provider.Chat(context.Background(), llm.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	AssertResponse(t, resp1).
		HasNoContent().
		HasToolCallCount(1).
		HasToolCallNamed("get_entities")

	resp2, err := provider.Chat(context.Background(), llm.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.Content != "The ontology defines Warehouse and Pallet." {
		t.Errorf("unexpected content: %q", resp2.Content)
	}
}

func TestScenarioProviderRequestCapture(t *testing.T) {
	provider := NewScenarioProvider().
		AddResponse("ok")

	req := llm.ChatRequest{
		Model: "test-model",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Hello"},
		},
	}

	_, _ = provider.Chat(context.Background(), req)

	captured := provider.LastRequest()
	if captured == nil {
		t.Fatal("expected captured request")
	}
	if captured.Model != "test-model" {
		t.Errorf("expected model 'test-model', got %q", captured.Model)
	}
	if len(captured.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(captured.Messages))
	}
}

func TestToolCallBuilder(t *testing.T) {
	tc := NewToolCall("add_individual").
		WithID("call_abc").
		WithArg("name", "pallet_7").
		WithArg("classes", []string{"Pallet"}).
		Build()

	if tc.Function.Name != "add_individual" {
		t.Errorf("expected name 'add_individual', got %q", tc.Function.Name)
	}
	if tc.ID != "call_abc" {
		t.Errorf("expected ID 'call_abc', got %q", tc.ID)
	}
	if tc.Type != llm.ToolTypeFunction {
		t.Errorf("expected type 'function', got %q", tc.Type)
	}
	args := DecodeToolCallArgs(t, tc, "add_individual")
	if args["name"] != "pallet_7" {
		t.Errorf("args[name] = %v, want pallet_7", args["name"])
	}
}

func TestToolDefinitionBuilder(t *testing.T) {
	tool := NewToolDefinition("query_ontology").
		WithDescription("Run a query over the ontology").
		WithParameter("query_text", "string", "Query to evaluate", true).
		WithParameter("limit", "integer", "Max results", false).
		Build()

	if tool.Function.Name != "query_ontology" {
		t.Errorf("expected name 'query_ontology', got %q", tool.Function.Name)
	}
	if tool.Function.Description != "Run a query over the ontology" {
		t.Errorf("expected description, got %q", tool.Function.Description)
	}
	if tool.Type != llm.ToolTypeFunction {
		t.Errorf("expected type 'function', got %q", tool.Type)
	}
}

func TestInvocationLog(t *testing.T) {
	log := NewInvocationLog()
	ctx := context.Background()

	_ = log.Record(ctx, audit.Invocation{Capability: "add_class"})
	_ = log.Record(ctx, audit.Invocation{Capability: "add_property"})
	_ = log.Record(ctx, audit.Invocation{Capability: "add_individual"})

	if log.Count() != 3 {
		t.Errorf("expected 3 invocations, got %d", log.Count())
	}

	if !log.Has("add_property") {
		t.Error("expected to find 'add_property' invocation")
	}

	if log.Has("nonexistent") {
		t.Error("should not find 'nonexistent' invocation")
	}

	names := log.Capabilities()
	if len(names) != 3 {
		t.Errorf("expected 3 names, got %d", len(names))
	}
	if names[0] != "add_class" {
		t.Errorf("expected first capability 'add_class', got %q", names[0])
	}

	log.Reset()
	if log.Count() != 0 {
		t.Errorf("expected 0 invocations after reset, got %d", log.Count())
	}
}

func TestRequestAssertions(t *testing.T) {
	req := &llm.ChatRequest{
		Model: "qwen3:8b",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an ontology explorer"},
			{Role: llm.RoleUser, Content: "Hello"},
		},
		Tools: []llm.Tool{
			NewToolDefinition("query_ontology").Build(),
		},
	}

	AssertRequest(t, req).
		HasModel("qwen3:8b").
		HasMessageCount(2).
		HasToolCount(1).
		HasSystemMessage("ontology").
		HasUserMessage("Hello").
		HasTool("query_ontology")
}

func TestResponseAssertions(t *testing.T) {
	resp := &llm.ChatResponse{
		Content: "Here is what I found.",
		ToolCalls: []llm.ToolCall{
			NewToolCall("query_ontology").WithArg("query_text", "class(X)").Build(),
		},
	}

	AssertResponse(t, resp).
		HasContent("found").
		HasToolCalls().
		HasToolCallCount(1).
		HasToolCallNamed("query_ontology")
}

func TestDecodeToolCallArgs(t *testing.T) {
	tc := NewToolCall("add_class").
		WithArg("name", "Forklift").
		WithArg("parents", []string{"Vehicle"}).
		Build()

	args := DecodeToolCallArgs(t, tc, "add_class")
	if args["name"] != "Forklift" {
		t.Errorf("name = %v, want Forklift", args["name"])
	}
	if _, ok := args["parents"]; !ok {
		t.Error("parents argument missing")
	}
}
