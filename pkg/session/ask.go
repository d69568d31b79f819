// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/ontoforge/ontoforge/pkg/agent"
	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/mcp"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/prompt"
	"github.com/ontoforge/ontoforge/pkg/query"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// Answer is the agent's response to one question.
type Answer struct {
	Query      string
	Expected   string
	Text       string
	Iterations int
	Exhausted  bool
	Usage      llm.Usage
}

// Asker replays a saved entities snapshot and answers questions against it
// through the explorer capabilities. Each question runs on a fresh message
// stack; only the snapshot is shared.
type Asker struct {
	settings
	cfg          *config.Config
	provider     llm.Provider
	store        *ontology.Store
	registry     *capability.Registry
	loop         *agent.Loop
	servers      *mcp.Servers
	system       string
	snapshotPath string
	owlPath      string
	sessionID    string
}

// NewAsker loads the snapshot named by cfg (or the latest outcome) and
// prepares the query evaluator behind the query_ontology capability.
func NewAsker(cfg *config.Config, provider llm.Provider, opts ...Option) (*Asker, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfig, "asker requires a configuration", nil)
	}
	if provider == nil {
		return nil, errors.New(errors.CodeConfig, "asker requires a provider", nil)
	}

	a := &Asker{
		settings:  newSettings(opts),
		cfg:       cfg,
		provider:  provider,
		sessionID: uuid.NewString(),
	}

	path, err := ResolveSnapshot(cfg.Data)
	if err != nil {
		return nil, err
	}
	store, err := ontology.FromFile(path)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.snapshotPath = path

	// The transcribed document travels with the snapshot. It is not parsed
	// here (a sparql endpoint serves it out-of-band), so a missing sibling
	// is fine; an explicitly configured path must exist.
	if owlPath, owlErr := ResolveOntology(cfg.Data); owlErr == nil {
		if _, statErr := os.Stat(owlPath); statErr == nil {
			a.owlPath = owlPath
		} else if cfg.Data.OWL != "" {
			return nil, errors.New(errors.CodeNotFound,
				fmt.Sprintf("ontology document %s not found", cfg.Data.OWL), statErr)
		}
	}

	eval, err := query.New(query.Config{
		Dialect:  cfg.Evaluator.Dialect,
		Endpoint: cfg.Evaluator.Endpoint,
		Timeout:  time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
	}, store)
	if err != nil {
		return nil, err
	}

	a.registry = capability.NewExplorerRegistry(store, eval, capability.WithLogger(a.logger))
	loopOpts := []agent.Option{
		agent.WithModel(cfg.LLM.Model),
		agent.WithMaxIterations(cfg.Loop.AskMaxIterations),
		agent.WithBackoff(agent.Backoff{
			Delay:      time.Duration(cfg.Loop.RetryDelaySeconds) * time.Second,
			MaxRetries: cfg.Loop.MaxRetries,
		}),
		agent.WithVerbose(cfg.Loop.Verbose),
		agent.WithSessionID(a.sessionID),
		agent.WithLogger(a.logger),
	}
	if a.recorder != nil {
		loopOpts = append(loopOpts, agent.WithAudit(a.recorder))
	}
	if a.conv != nil {
		loopOpts = append(loopOpts, agent.WithConversation(a.conv))
	}
	if a.metrics != nil {
		loopOpts = append(loopOpts, agent.WithMetrics(a.metrics))
	}
	loop, err := agent.New(provider, a.registry, loopOpts...)
	if err != nil {
		return nil, err
	}
	a.loop = loop
	a.system = prompt.Explore(cfg.Evaluator.Dialect)
	return a, nil
}

// mountTools connects configured external MCP servers on first use. The
// loop reads tool definitions per run, so late mounting is visible to every
// subsequent question.
func (a *Asker) mountTools(ctx context.Context) error {
	if a.servers != nil || len(a.mcpServers) == 0 {
		return nil
	}
	servers, err := mcp.MountServers(ctx, a.registry, a.mcpServers, a.logger)
	if err != nil {
		return err
	}
	a.servers = servers
	return nil
}

// Close releases external MCP connections, if any were mounted.
func (a *Asker) Close() error {
	if a.servers != nil {
		a.servers.Close()
		a.servers = nil
	}
	return nil
}

// SessionID identifies this ask session in audit records and journals.
func (a *Asker) SessionID() string { return a.sessionID }

// SnapshotPath reports which entities snapshot the asker replays.
func (a *Asker) SnapshotPath() string { return a.snapshotPath }

// OntologyPath reports the transcribed OWL document accompanying the
// snapshot, or "" when none is on disk.
func (a *Asker) OntologyPath() string { return a.owlPath }

// Stats exposes the size of the replayed snapshot.
func (a *Asker) Stats() ontology.Stats { return a.store.Stats() }

// Ask answers one question against the snapshot.
func (a *Asker) Ask(ctx context.Context, q Question) (*Answer, error) {
	ctx, span := otel.Tracer("ontoforge/session").Start(ctx, "Session.Ask")
	defer span.End()
	span.SetAttributes(telemetry.SessionAttributes(a.sessionID, "ask", filepath.Dir(a.snapshotPath))...)

	if err := a.mountTools(ctx); err != nil {
		return nil, err
	}
	res, err := a.loop.Run(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: a.system},
		{Role: llm.RoleUser, Content: q.Query},
	})
	if err != nil {
		return nil, err
	}
	return &Answer{
		Query:      q.Query,
		Expected:   q.Expected,
		Text:       res.Text,
		Iterations: res.Iterations,
		Exhausted:  res.Exhausted,
		Usage:      res.Usage,
	}, nil
}

// Run answers every question in the configured question file, in order.
// A provider failure aborts the remaining questions.
func (a *Asker) Run(ctx context.Context) ([]Answer, error) {
	questions, err := LoadQuestions(a.cfg.Data.Questions)
	if err != nil {
		return nil, err
	}
	answers := make([]Answer, 0, len(questions))
	for i, q := range questions {
		a.logger.Info("asking question",
			slog.String("session_id", a.sessionID),
			slog.Int("number", i+1),
			slog.String("query", q.Query),
			slog.String("expected", q.Expected),
		)
		ans, err := a.Ask(ctx, q)
		if err != nil {
			return answers, err
		}
		a.logger.Info("question answered",
			slog.String("session_id", a.sessionID),
			slog.Int("number", i+1),
			slog.Int("iterations", ans.Iterations),
			slog.Bool("exhausted", ans.Exhausted),
		)
		answers = append(answers, *ans)
	}
	return answers, nil
}
