// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package ollama implements memory.Embedder over the Ollama embeddings API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/resilience"
)

// Embedder converts text to vectors with a local Ollama model.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	retry   resilience.RetryConfig
}

// NewEmbedder creates an Ollama embedder. An empty baseURL means the
// default local instance.
func NewEmbedder(baseURL, model string) *Embedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Embedder{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed converts a text string into a vector. Transient failures retry with
// backoff; a rejected request (unknown model, bad payload) does not.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	call := func() (embeddingResponse, error) {
		var embResp embeddingResponse
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
		if err != nil {
			return embResp, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return embResp, fmt.Errorf("ollama embeddings call: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := fmt.Errorf("ollama embeddings status %d: %s", resp.StatusCode, detail)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return embResp, errors.New(errors.CodeMemory, "embedding request rejected", statusErr).
					WithRecoverable(false)
			}
			return embResp, statusErr
		}
		if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
			return embResp, fmt.Errorf("decode embedding response: %w", err)
		}
		return embResp, nil
	}
	embResp, err := resilience.DoWithResult(ctx, e.retry, call)
	if err != nil {
		return nil, err
	}

	vec := make([]float32, len(embResp.Embedding))
	for i, v := range embResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
