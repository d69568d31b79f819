// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
)

// MockProvider answers every Chat call with a fixed reply. Unit tests
// and the "mock" bootstrap backend use it when no real model is wanted.
type MockProvider struct {
	// Response becomes the assistant content of every reply.
	Response string
	// Err, when set, fails every call instead.
	Err error
	// ChatFunc overrides the canned behavior entirely when non-nil.
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

// FailingMockProvider fails every call, with Err or a generic error.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return nil, fmt.Errorf("mock provider configured to fail")
}

var (
	_ Provider = (*MockProvider)(nil)
	_ Provider = (*FailingMockProvider)(nil)
)
