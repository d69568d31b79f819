// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

func TestNewDefaults(t *testing.T) {
	p := New()
	if p.model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %s, want claude-sonnet-4-20250514", p.model)
	}
	if p.maxTokens != 8192 {
		t.Errorf("maxTokens = %d, want 8192", p.maxTokens)
	}
}

func TestOptions(t *testing.T) {
	p := New(WithModel("claude-opus-4-20250514"), WithMaxTokens(4096), WithAPIKey("test-key"))
	if p.model != "claude-opus-4-20250514" {
		t.Errorf("model = %s, want claude-opus-4-20250514", p.model)
	}
	if p.maxTokens != 4096 {
		t.Errorf("maxTokens = %d, want 4096", p.maxTokens)
	}
}

// TestChatRoundTrip drives Chat against a stub Messages endpoint and
// checks both directions of the conversion: the wire request carries the
// system prompt out of band with the API key header set, and the wire
// response comes back as content plus tool calls with usage filled in.
func TestChatRoundTrip(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "text", "text": "Adding the pallet now."},
				{"type": "tool_use", "id": "toolu_01", "name": "add_individual", "input": {"name": "pallet_7", "class": "Pallet"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 40, "output_tokens": 25}
		}`)
	}))
	defer server.Close()

	p := New(WithBaseURL(server.URL), WithAPIKey("test-key"))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Transcribe warehouse facts into OWL."},
			{Role: llm.RoleUser, Content: "Pallet 7 sits in zone A."},
		},
		Tools: []llm.Tool{{
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionDef{
				Name:        "add_individual",
				Description: "Assert an individual in the ABox.",
				Parameters:  map[string]any{"type": "object"},
			},
		}},
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if gotAuth != "test-key" {
		t.Errorf("x-api-key = %q, want test-key (base URL and key options must compose)", gotAuth)
	}
	if _, ok := gotBody["system"]; !ok {
		t.Error("system prompt missing from the request body")
	}
	if msgs, ok := gotBody["messages"].([]any); !ok || len(msgs) != 1 {
		t.Errorf("wire messages = %v, want just the user turn", gotBody["messages"])
	}
	if tools, ok := gotBody["tools"].([]any); !ok || len(tools) != 1 {
		t.Errorf("wire tools = %v, want the single capability", gotBody["tools"])
	}

	if !strings.Contains(resp.Content, "Adding the pallet") {
		t.Errorf("content = %q, want the text block", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "add_individual" {
		t.Fatalf("tool calls = %+v, want one add_individual call", resp.ToolCalls)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(resp.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["name"] != "pallet_7" {
		t.Errorf("args = %v, want the tool_use input round-tripped", args)
	}
	if resp.Usage.TotalTokens != 65 {
		t.Errorf("total tokens = %d, want 65", resp.Usage.TotalTokens)
	}
}

func TestMessageParamRoles(t *testing.T) {
	user := messageParam(llm.Message{Role: llm.RoleUser, Content: "Extract the classes."})
	if user.Role != "user" {
		t.Errorf("user role = %q", user.Role)
	}

	assistant := messageParam(llm.Message{Role: llm.RoleAssistant, Content: "Registering the taxonomy."})
	if assistant.Role != "assistant" {
		t.Errorf("assistant role = %q", assistant.Role)
	}

	// Tool results have no role of their own on this API.
	result := messageParam(llm.Message{Role: llm.RoleTool, Content: `{"results":"Class created."}`, ToolCallID: "toolu_9"})
	if result.Role != "user" {
		t.Errorf("tool result role = %q, want user", result.Role)
	}
	if len(result.Content) != 1 || result.Content[0].OfToolResult == nil {
		t.Fatalf("tool result content = %+v", result.Content)
	}
	if got := result.Content[0].OfToolResult.ToolUseID; got != "toolu_9" {
		t.Errorf("tool_use_id = %q, want toolu_9", got)
	}
}

func TestToolUseMessageKeepsCallOrder(t *testing.T) {
	msg := llm.Message{
		Role:    llm.RoleAssistant,
		Content: "Asserting both individuals.",
		ToolCalls: []llm.ToolCall{
			{ID: "toolu_1", Function: llm.FunctionCall{Name: "add_individual", Arguments: `{"name":"pallet_7"}`}},
			{ID: "toolu_2", Function: llm.FunctionCall{Name: "add_individual", Arguments: `{"name":"pallet_8"}`}},
		},
	}

	param := messageParam(msg)
	if param.Role != "assistant" {
		t.Fatalf("role = %q", param.Role)
	}
	// Leading text block, then the calls in request order.
	if len(param.Content) != 3 {
		t.Fatalf("content blocks = %d, want 3", len(param.Content))
	}
	if param.Content[0].OfText == nil {
		t.Error("leading text block missing")
	}
	for i, wantID := range []string{"toolu_1", "toolu_2"} {
		block := param.Content[i+1].OfToolUse
		if block == nil || block.ID != wantID {
			t.Errorf("block %d = %+v, want tool_use %s", i+1, param.Content[i+1], wantID)
		}
	}
}

func TestToolParamCarriesSchema(t *testing.T) {
	tool := llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        "add_class",
			Description: "Add or update a class in the ontology's TBox.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			},
		},
	}

	out := toolParam(tool)
	if out.OfTool == nil || out.OfTool.Name != "add_class" {
		t.Fatalf("tool param = %+v", out)
	}
	if out.OfTool.InputSchema.Properties == nil {
		t.Error("input schema properties dropped in conversion")
	}
}
