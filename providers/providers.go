// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package providers resolves a configured provider name to a concrete
// llm.Provider. This is the only place that knows every backend; the agent
// loop and sessions speak llm.Provider and nothing else.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/providers/anthropic"
	"github.com/ontoforge/ontoforge/providers/gemini"
	"github.com/ontoforge/ontoforge/providers/openai"
	"github.com/ontoforge/ontoforge/providers/qwen"
)

// New builds the provider for name. model becomes the provider default;
// baseURL and apiKey are optional and fall back to each backend's own
// environment conventions when empty.
func New(ctx context.Context, name, model, baseURL, apiKey string) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai":
		var opts []openai.Option
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		if apiKey != "" {
			opts = append(opts, openai.WithAPIKey(apiKey))
		}
		return openai.New(opts...), nil

	case "anthropic", "claude":
		var opts []anthropic.Option
		if model != "" {
			opts = append(opts, anthropic.WithModel(model))
		}
		if baseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(baseURL))
		}
		if apiKey != "" {
			opts = append(opts, anthropic.WithAPIKey(apiKey))
		}
		return anthropic.New(opts...), nil

	case "gemini", "google":
		var opts []gemini.Option
		if model != "" {
			opts = append(opts, gemini.WithModel(model))
		}
		if apiKey != "" {
			return gemini.NewWithAPIKey(ctx, apiKey, opts...)
		}
		return gemini.New(ctx, opts...)

	case "qwen", "dashscope":
		var opts []qwen.Option
		if model != "" {
			opts = append(opts, qwen.WithModel(model))
		}
		if baseURL != "" {
			opts = append(opts, qwen.WithBaseURL(baseURL))
		}
		return qwen.New(apiKey, opts...), nil

	case "ollama":
		return llm.NewOllama(baseURL), nil

	case "openai-compat", "compat":
		if baseURL == "" {
			return nil, errors.New(errors.CodeConfig,
				"openai-compat provider requires a base URL", nil)
		}
		return llm.NewOpenAICompat(baseURL, apiKey), nil

	default:
		return nil, errors.New(errors.CodeConfig,
			fmt.Sprintf("unknown provider %q (known: openai, anthropic, gemini, qwen, ollama, openai-compat)", name), nil)
	}
}
