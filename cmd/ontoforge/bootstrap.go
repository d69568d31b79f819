// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/mcp"
	"github.com/ontoforge/ontoforge/pkg/memory"
	"github.com/ontoforge/ontoforge/pkg/memory/ollama"
	"github.com/ontoforge/ontoforge/pkg/memory/qdrant"
	"github.com/ontoforge/ontoforge/pkg/session"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
	"github.com/ontoforge/ontoforge/providers"
)

// cliRuntime assembles the collaborators a session needs from config:
// logger, telemetry, provider, audit store, and entity recall. Close it
// when the command finishes.
type cliRuntime struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider llm.Provider
	audit    *audit.SQLiteStore
	recall   capability.EntityRecall
	metrics  *telemetry.Metrics
	cleanup  []func()
}

// newRuntime wires up everything cfg enables. Logs go to stderr so stdout
// stays clean for tables, JSON, and the stdio MCP transport.
func newRuntime(ctx context.Context, cfg *config.Config, noTelemetry bool) (*cliRuntime, error) {
	rt := &cliRuntime{
		cfg:    cfg,
		logger: telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format),
	}

	if cfg.Telemetry.Enabled && !noTelemetry {
		shutdown, err := telemetry.InitWithConfig("ontoforge", version, telemetry.Config{
			Exporter:           cfg.Telemetry.Exporter,
			OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure:       cfg.Telemetry.OTLPInsecure,
			OTLPTimeoutSeconds: cfg.Telemetry.OTLPTimeoutSeconds,
			OTLPHeaders:        cfg.Telemetry.OTLPHeaders,
			OTLPUser:           cfg.Telemetry.OTLPUser,
			OTLPToken:          cfg.Telemetry.OTLPToken,
		})
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		rt.cleanup = append(rt.cleanup, func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
			}
		})
		metrics, err := telemetry.NewMetrics(ctx)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		rt.metrics = metrics
	}

	provider, err := createProvider(ctx, cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.provider = provider

	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			path = filepath.Join(cfg.Data.Dir, "audit.db")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				rt.close()
				return nil, fmt.Errorf("create audit dir: %w", err)
			}
		}
		store, err := audit.Open(path)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		rt.audit = store
		rt.cleanup = append(rt.cleanup, func() { _ = store.Close() })
	}

	if cfg.Memory.Enabled {
		recall, closeRecall, err := newRecall(cfg.Memory)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.recall = recall
		if closeRecall != nil {
			rt.cleanup = append(rt.cleanup, closeRecall)
		}
	}

	return rt, nil
}

// sessionOptions converts the wired collaborators into session options.
func (r *cliRuntime) sessionOptions() []session.Option {
	opts := []session.Option{session.WithLogger(r.logger)}
	if r.audit != nil {
		opts = append(opts, session.WithAudit(r.audit))
	}
	if r.recall != nil {
		opts = append(opts, session.WithRecall(r.recall))
	}
	if r.metrics != nil {
		opts = append(opts, session.WithMetrics(r.metrics))
	}
	if specs := mcp.SpecsFromConfig(r.cfg.MCP.Servers); len(specs) > 0 {
		opts = append(opts, session.WithMCPServers(specs))
	}
	return opts
}

func (r *cliRuntime) close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
	r.cleanup = nil
}

// createProvider resolves the configured LLM backend. The mock provider is
// handled here so scripted runs work without network access.
func createProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.LLM.Provider), "mock") {
		return &llm.MockProvider{Response: "Mock response."}, nil
	}
	return providers.New(ctx, cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKey)
}

// newRecall builds the vector-backed entity recall from the memory config.
func newRecall(cfg config.MemoryConfig) (capability.EntityRecall, func(), error) {
	if provider := strings.ToLower(strings.TrimSpace(cfg.EmbedderProvider)); provider != "" && provider != "ollama" {
		return nil, nil, fmt.Errorf("unknown embedder provider %q (known: ollama)", cfg.EmbedderProvider)
	}
	store, err := qdrant.New(cfg.QdrantAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect qdrant at %s: %w", cfg.QdrantAddr, err)
	}
	embedder := ollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel)
	index := memory.NewEntityIndex(store, embedder, memory.EntityIndexConfig{
		Collection: cfg.Collection,
	})
	return index, func() { _ = store.Close() }, nil
}
