// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatProvider implements Provider against any endpoint speaking the
// OpenAI chat-completions wire format: DashScope, vLLM, LM Studio, and most
// local gateways. The Message and Tool types already use that wire shape, so
// requests pass through without translation.
type OpenAICompatProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAICompat creates a provider for an OpenAI-compatible endpoint.
// baseURL is the API root, e.g. "https://dashscope.aliyuncs.com/compatible-mode/v1".
func NewOpenAICompat(baseURL, apiKey string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type compatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Chat posts the request to /chat/completions and maps the first choice.
func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completions call failed: %w", err)
	}
	defer resp.Body.Close()

	var cResp compatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&cResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && cResp.Error != nil {
			return nil, fmt.Errorf("chat completions returned status %d: %s", resp.StatusCode, cResp.Error.Message)
		}
		return nil, fmt.Errorf("chat completions returned status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode chat completions response: %w", decodeErr)
	}
	if len(cResp.Choices) == 0 {
		return nil, fmt.Errorf("chat completions response has no choices")
	}

	choice := cResp.Choices[0]
	return &ChatResponse{
		Content:   choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
		Usage:     cResp.Usage,
	}, nil
}

// Ensure OpenAICompatProvider implements Provider.
var _ Provider = (*OpenAICompatProvider)(nil)
