// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the provider-neutral chat contract the rest of
// OntoForge programs against. A Provider carries one ChatRequest to a
// concrete backend and reports the reply as a ChatResponse, including
// any capability invocations the model asked for. Hosted backends live
// under providers/; this package ships the local Ollama client and a
// generic OpenAI-compatible one.
package llm

import "context"

// Provider is the single seam between OntoForge and a chat backend.
// Implementations translate ChatRequest into their native API and must
// honor ctx cancellation mid-flight.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is one full conversation turn: the transcript so far plus
// the capabilities the model may invoke.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse is the model's reply. Content and ToolCalls are not
// exclusive: a model may narrate and invoke capabilities in the same
// turn.
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Usage reports token spend for a single exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is one transcript entry. Capability results set ToolCallID to
// the ID of the assistant call they answer.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Tool advertises one capability to the model, in the OpenAI function
// calling shape every supported backend understands.
type Tool struct {
	Type     ToolType    `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef names a capability and describes its arguments.
// Parameters holds a JSON Schema object.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

// ToolCall is the model asking for one capability invocation.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     ToolType     `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked name and the raw JSON argument
// string the model produced. Decoding is deferred to the capability
// registry, which validates against the declared schema first.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolType distinguishes tool flavors. Function is the only one in use.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)
