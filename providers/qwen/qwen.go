// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package qwen backs the agent loop with Alibaba Cloud's Qwen models.
// DashScope speaks the OpenAI chat-completions wire format, so the provider
// rides the shared compat client and only pins the endpoint and defaults.
package qwen

import (
	"context"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

// DefaultBaseURL is the DashScope OpenAI-compatible endpoint.
const DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Provider implements llm.Provider for Qwen via DashScope.
type Provider struct {
	compat *llm.OpenAICompatProvider
	model  string
}

type settings struct {
	model   string
	baseURL string
}

// Option configures the Provider.
type Option func(*settings)

// WithModel sets the default model used when a request names none.
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// WithBaseURL points the provider at a different compatible endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

// New creates a new Qwen provider.
func New(apiKey string, opts ...Option) *Provider {
	s := settings{
		model:   "qwen-plus",
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Provider{
		compat: llm.NewOpenAICompat(s.baseURL, apiKey),
		model:  s.model,
	}
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}
	return p.compat.Chat(ctx, req)
}

// Ensure Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)
