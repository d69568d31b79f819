// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package qwen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ontoforge/ontoforge/pkg/llm"
)

func TestNewDefaults(t *testing.T) {
	p := New("test-api-key")
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
	if p.model != "qwen-plus" {
		t.Errorf("expected model qwen-plus, got %s", p.model)
	}
}

func TestWithModel(t *testing.T) {
	p := New("test-key", WithModel("qwen-max"))
	if p.model != "qwen-max" {
		t.Errorf("expected model qwen-max, got %s", p.model)
	}
}

func TestChatDefaultsModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": llm.Message{Role: llm.RoleAssistant, Content: "done"}},
			},
			"usage": llm.Usage{TotalTokens: 9},
		})
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL))
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotModel != "qwen-plus" {
		t.Errorf("default model not applied, got %q", gotModel)
	}
	if resp.Content != "done" {
		t.Errorf("unexpected content %q", resp.Content)
	}

	// An explicit model wins over the default.
	if _, err := p.Chat(context.Background(), llm.ChatRequest{Model: "qwen-max"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotModel != "qwen-max" {
		t.Errorf("explicit model not forwarded, got %q", gotModel)
	}
}
