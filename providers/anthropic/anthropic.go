// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package anthropic backs the agent loop with the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

// Provider implements llm.Provider for the Anthropic Claude API.
type Provider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

type settings struct {
	model     string
	maxTokens int64
	baseURL   string
	apiKey    string
}

// Option configures the Provider.
type Option func(*settings)

// WithModel sets the default model used when a request names none.
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// WithMaxTokens sets the response token ceiling. OWL transcriptions run
// long, so the default is generous.
func WithMaxTokens(tokens int64) Option {
	return func(s *settings) {
		s.maxTokens = tokens
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// WithAPIKey sets the API key explicitly.
func WithAPIKey(apiKey string) Option {
	return func(s *settings) {
		s.apiKey = apiKey
	}
}

// New creates a new Anthropic provider. Without WithAPIKey the key comes
// from the ANTHROPIC_API_KEY environment variable.
func New(opts ...Option) *Provider {
	s := settings{
		model:     "claude-sonnet-4-20250514",
		maxTokens: 8192,
	}
	for _, opt := range opts {
		opt(&s)
	}

	var reqOpts []option.RequestOption
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(s.apiKey))
	}

	return &Provider{
		client:    anthropic.NewClient(reqOpts...),
		model:     s.model,
		maxTokens: s.maxTokens,
	}
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic message create failed: %w", err)
	}
	return toChatResponse(message), nil
}

func (p *Provider) buildParams(req llm.ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	system, messages := splitSystem(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: system},
		}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, toolParam(tool))
	}
	return params
}

// splitSystem pulls the system prompt out of the transcript. The Messages
// API takes it as a top-level field, not as a message.
func splitSystem(msgs []llm.Message) (string, []anthropic.MessageParam) {
	var system string
	params := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == llm.RoleSystem {
			system = msg.Content
			continue
		}
		params = append(params, messageParam(msg))
	}
	return system, params
}

func messageParam(msg llm.Message) anthropic.MessageParam {
	switch msg.Role {
	case llm.RoleAssistant:
		if len(msg.ToolCalls) > 0 {
			return toolUseMessage(msg)
		}
		return anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content))
	case llm.RoleTool:
		// Tool results travel as user messages on this API.
		return anthropic.NewUserMessage(
			anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
		)
	default:
		return anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content))
	}
}

// toolUseMessage rebuilds an assistant turn that requested capability
// calls, so the transcript replays cleanly on the next iteration.
func toolUseMessage(msg llm.Message) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		input := map[string]any{}
		json.Unmarshal([]byte(tc.Function.Arguments), &input)
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Function.Name))
	}
	return anthropic.MessageParam{
		Role:    "assistant",
		Content: blocks,
	}
}

func toolParam(tool llm.Tool) anthropic.ToolUnionParam {
	var schema anthropic.ToolInputSchemaParam
	if raw, err := json.Marshal(tool.Function.Parameters); err == nil {
		json.Unmarshal(raw, &schema)
	}
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Function.Name,
			Description: anthropic.String(tool.Function.Description),
			InputSchema: schema,
		},
	}
}

func toChatResponse(message *anthropic.Message) *llm.ChatResponse {
	var text strings.Builder
	var calls []llm.ToolCall
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			calls = append(calls, llm.ToolCall{
				ID:   block.ID,
				Type: llm.ToolTypeFunction,
				Function: llm.FunctionCall{
					Name:      block.Name,
					Arguments: string(args),
				},
			})
		}
	}

	return &llm.ChatResponse{
		Content:   text.String(),
		ToolCalls: calls,
		Usage: llm.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
}

// Ensure Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)
