// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

// ScenarioProvider is a scripted llm.Provider for loop tests. It replays a
// queued sequence of responses (text, capability calls, or faults) and
// captures every request so tests can assert on the conversation the loop
// actually sent.
type ScenarioProvider struct {
	mu       sync.Mutex
	script   []ScriptedResponse
	next     int
	requests []llm.ChatRequest
}

// ScriptedResponse is one step of a provider script. Error takes precedence;
// otherwise Content, ToolCalls, and Usage fill the chat response as given.
type ScriptedResponse struct {
	Content   string
	ToolCalls []llm.ToolCall
	Error     error
	Usage     llm.Usage
}

// NewScenarioProvider creates an empty scripted provider.
func NewScenarioProvider() *ScenarioProvider {
	return &ScenarioProvider{}
}

// AddResponse queues a plain text response.
func (p *ScenarioProvider) AddResponse(content string) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Content: content})
}

// AddToolCallResponse queues a response carrying the given capability calls.
func (p *ScenarioProvider) AddToolCallResponse(toolCalls ...llm.ToolCall) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{ToolCalls: toolCalls})
}

// AddErrorResponse queues a provider fault.
func (p *ScenarioProvider) AddErrorResponse(err error) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Error: err})
}

// AddScriptedResponse queues a fully specified step.
func (p *ScenarioProvider) AddScriptedResponse(resp ScriptedResponse) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, resp)
	return p
}

// Chat implements llm.Provider. The request is captured even when the
// script is already exhausted, so call counts stay truthful.
func (p *ScenarioProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if p.next >= len(p.script) {
		return nil, fmt.Errorf("script exhausted after %d responses", len(p.script))
	}
	step := p.script[p.next]
	p.next++

	if step.Error != nil {
		return nil, step.Error
	}
	return &llm.ChatResponse{
		Content:   step.Content,
		ToolCalls: step.ToolCalls,
		Usage:     step.Usage,
	}, nil
}

// Requests returns a copy of every captured request, in call order.
func (p *ScenarioProvider) Requests() []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// LastRequest returns the most recent request, or nil before the first call.
func (p *ScenarioProvider) LastRequest() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// CallCount reports how many times Chat ran, exhausted calls included.
func (p *ScenarioProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// ToolCallBuilder assembles an llm.ToolCall with JSON-encoded arguments.
type ToolCallBuilder struct {
	id   string
	name string
	args map[string]any
}

// NewToolCall starts a builder for a call to the named capability.
func NewToolCall(name string) *ToolCallBuilder {
	return &ToolCallBuilder{
		name: name,
		args: make(map[string]any),
	}
}

// WithID sets the call ID the provider would have assigned.
func (b *ToolCallBuilder) WithID(id string) *ToolCallBuilder {
	b.id = id
	return b
}

// WithArg adds one argument.
func (b *ToolCallBuilder) WithArg(key string, value any) *ToolCallBuilder {
	b.args[key] = value
	return b
}

// Build encodes the arguments and returns the finished call.
func (b *ToolCallBuilder) Build() llm.ToolCall {
	argsJSON, _ := json.Marshal(b.args)
	return llm.ToolCall{
		ID:   b.id,
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionCall{
			Name:      b.name,
			Arguments: string(argsJSON),
		},
	}
}

// ToolDefinitionBuilder assembles an llm.Tool with a JSON Schema parameter
// object, the shape capability registries hand to providers.
type ToolDefinitionBuilder struct {
	name        string
	description string
	props       map[string]any
	required    []string
}

// NewToolDefinition starts a builder for the named tool.
func NewToolDefinition(name string) *ToolDefinitionBuilder {
	return &ToolDefinitionBuilder{
		name:  name,
		props: make(map[string]any),
	}
}

// WithDescription sets the tool description.
func (b *ToolDefinitionBuilder) WithDescription(desc string) *ToolDefinitionBuilder {
	b.description = desc
	return b
}

// WithParameter declares one schema property.
func (b *ToolDefinitionBuilder) WithParameter(name, paramType, description string, required bool) *ToolDefinitionBuilder {
	b.props[name] = map[string]any{
		"type":        paramType,
		"description": description,
	}
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// Build assembles the schema and returns the finished definition.
func (b *ToolDefinitionBuilder) Build() llm.Tool {
	params := map[string]any{
		"type":       "object",
		"properties": b.props,
	}
	if len(b.required) > 0 {
		params["required"] = b.required
	}
	return llm.Tool{
		Type: llm.ToolTypeFunction,
		Function: llm.FunctionDef{
			Name:        b.name,
			Description: b.description,
			Parameters:  params,
		},
	}
}
