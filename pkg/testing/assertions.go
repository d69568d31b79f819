// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

// RequestAssertions wraps a captured chat request with fluent checks, so a
// loop test reads as the list of properties the conversation must have.
type RequestAssertions struct {
	t   *testing.T
	req *llm.ChatRequest
}

// AssertRequest starts fluent assertions on req. A nil request fails the
// test immediately.
func AssertRequest(t *testing.T, req *llm.ChatRequest) *RequestAssertions {
	t.Helper()
	if req == nil {
		t.Fatal("request is nil")
	}
	return &RequestAssertions{t: t, req: req}
}

// HasModel checks the request names the given model.
func (r *RequestAssertions) HasModel(model string) *RequestAssertions {
	r.t.Helper()
	if r.req.Model != model {
		r.t.Errorf("model = %q, want %q", r.req.Model, model)
	}
	return r
}

// HasMessageCount checks the conversation length.
func (r *RequestAssertions) HasMessageCount(count int) *RequestAssertions {
	r.t.Helper()
	if len(r.req.Messages) != count {
		r.t.Errorf("message count = %d, want %d", len(r.req.Messages), count)
	}
	return r
}

// HasToolCount checks how many tools the request advertises.
func (r *RequestAssertions) HasToolCount(count int) *RequestAssertions {
	r.t.Helper()
	if len(r.req.Tools) != count {
		r.t.Errorf("tool count = %d, want %d", len(r.req.Tools), count)
	}
	return r
}

// HasSystemMessage checks some system message contains the substring.
func (r *RequestAssertions) HasSystemMessage(contains string) *RequestAssertions {
	r.t.Helper()
	for _, msg := range r.req.Messages {
		if msg.Role == llm.RoleSystem && strings.Contains(msg.Content, contains) {
			return r
		}
	}
	r.t.Errorf("no system message containing %q", contains)
	return r
}

// HasUserMessage checks some user message contains the substring.
func (r *RequestAssertions) HasUserMessage(contains string) *RequestAssertions {
	r.t.Helper()
	for _, msg := range r.req.Messages {
		if msg.Role == llm.RoleUser && strings.Contains(msg.Content, contains) {
			return r
		}
	}
	r.t.Errorf("no user message containing %q", contains)
	return r
}

// HasTool checks the named tool is advertised.
func (r *RequestAssertions) HasTool(name string) *RequestAssertions {
	r.t.Helper()
	for _, tool := range r.req.Tools {
		if tool.Function.Name == name {
			return r
		}
	}
	r.t.Errorf("tool %q not advertised in request", name)
	return r
}

// ResponseAssertions wraps a chat response with fluent checks.
type ResponseAssertions struct {
	t    *testing.T
	resp *llm.ChatResponse
}

// AssertResponse starts fluent assertions on resp. A nil response fails the
// test immediately.
func AssertResponse(t *testing.T, resp *llm.ChatResponse) *ResponseAssertions {
	t.Helper()
	if resp == nil {
		t.Fatal("response is nil")
	}
	return &ResponseAssertions{t: t, resp: resp}
}

// HasContent checks the response text contains the substring.
func (r *ResponseAssertions) HasContent(contains string) *ResponseAssertions {
	r.t.Helper()
	if !strings.Contains(r.resp.Content, contains) {
		r.t.Errorf("content = %q, want substring %q", r.resp.Content, contains)
	}
	return r
}

// HasNoContent checks the response carries no text.
func (r *ResponseAssertions) HasNoContent() *ResponseAssertions {
	r.t.Helper()
	if r.resp.Content != "" {
		r.t.Errorf("content = %q, want empty", r.resp.Content)
	}
	return r
}

// HasToolCalls checks the response requests at least one capability.
func (r *ResponseAssertions) HasToolCalls() *ResponseAssertions {
	r.t.Helper()
	if len(r.resp.ToolCalls) == 0 {
		r.t.Error("expected tool calls, got none")
	}
	return r
}

// HasNoToolCalls checks the response requests nothing.
func (r *ResponseAssertions) HasNoToolCalls() *ResponseAssertions {
	r.t.Helper()
	if n := len(r.resp.ToolCalls); n > 0 {
		r.t.Errorf("tool calls = %d, want 0", n)
	}
	return r
}

// HasToolCallCount checks the number of requested calls.
func (r *ResponseAssertions) HasToolCallCount(count int) *ResponseAssertions {
	r.t.Helper()
	if n := len(r.resp.ToolCalls); n != count {
		r.t.Errorf("tool calls = %d, want %d", n, count)
	}
	return r
}

// HasToolCallNamed checks a call to the named capability is requested.
func (r *ResponseAssertions) HasToolCallNamed(name string) *ResponseAssertions {
	r.t.Helper()
	for _, tc := range r.resp.ToolCalls {
		if tc.Function.Name == name {
			return r
		}
	}
	r.t.Errorf("tool call %q not found", name)
	return r
}

// DecodeToolCallArgs checks the call targets the expected capability and
// returns its decoded arguments.
func DecodeToolCallArgs(t *testing.T, tc llm.ToolCall, expectedName string) map[string]any {
	t.Helper()
	if tc.Function.Name != expectedName {
		t.Errorf("tool call = %q, want %q", tc.Function.Name, expectedName)
	}
	if tc.Function.Arguments == "" {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		t.Fatalf("decode tool arguments: %v", err)
	}
	return args
}
