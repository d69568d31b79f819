// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ontoforge/ontoforge/pkg/agent"
	"github.com/ontoforge/ontoforge/pkg/audit"
	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/errors"
	"github.com/ontoforge/ontoforge/pkg/llm"
	"github.com/ontoforge/ontoforge/pkg/mcp"
	"github.com/ontoforge/ontoforge/pkg/memory"
	"github.com/ontoforge/ontoforge/pkg/ontology"
	"github.com/ontoforge/ontoforge/pkg/owl"
	"github.com/ontoforge/ontoforge/pkg/prompt"
	"github.com/ontoforge/ontoforge/pkg/telemetry"
)

// settings carries the optional collaborators both workflows accept.
type settings struct {
	logger     *slog.Logger
	recorder   audit.Recorder
	conv       memory.ConversationMemory
	metrics    *telemetry.Metrics
	recall     capability.EntityRecall
	mcpServers map[string]mcp.ServerSpec
	now        func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option wires an optional collaborator into a Builder or Asker.
type Option func(*settings)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAudit records every capability invocation through recorder.
func WithAudit(recorder audit.Recorder) Option {
	return func(s *settings) {
		s.recorder = recorder
	}
}

// WithConversation journals the exchanged messages into mem.
func WithConversation(mem memory.ConversationMemory) Option {
	return func(s *settings) {
		s.conv = mem
	}
}

// WithMetrics emits loop and capability metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithRecall adds semantic entity recall to the build: mutators index what
// they store and the model gains a search_entities capability.
func WithRecall(recall capability.EntityRecall) Option {
	return func(s *settings) {
		s.recall = recall
	}
}

// WithMCPServers mounts external MCP servers into the session's registry,
// extending the capability set beyond the built-ins. Connections are opened
// when the session runs and closed when it finishes.
func WithMCPServers(specs map[string]mcp.ServerSpec) Option {
	return func(s *settings) {
		s.mcpServers = specs
	}
}

// WithClock overrides the wall clock used to stamp outcome directories.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// PhaseReport summarizes one agent pass of a build run.
type PhaseReport struct {
	Name       string
	Iterations int
	Exhausted  bool
	Usage      llm.Usage
}

// BuildOutcome reports where a build saved its artifacts and what it cost.
type BuildOutcome struct {
	Dir          string
	SnapshotPath string
	OntologyPath string
	Stats        ontology.Stats
	Phases       []PhaseReport

	// MalformedOWL carries the well-formedness complaint against the saved
	// document, nil when the XML parsed cleanly. The document is saved
	// either way so a near-miss transcription can still be inspected.
	MalformedOWL error
}

// Builder runs the full extraction pipeline: two capability-driven agent
// passes populate the entities store, then a single transcription call
// renders it as OWL. Artifacts land in a fresh outcome directory.
type Builder struct {
	settings
	cfg       *config.Config
	provider  llm.Provider
	store     *ontology.Store
	sessionID string
}

// NewBuilder prepares a build session over cfg's data files.
func NewBuilder(cfg *config.Config, provider llm.Provider, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeConfig, "builder requires a configuration", nil)
	}
	if provider == nil {
		return nil, errors.New(errors.CodeConfig, "builder requires a provider", nil)
	}
	return &Builder{
		settings:  newSettings(opts),
		cfg:       cfg,
		provider:  provider,
		store:     ontology.NewStore(),
		sessionID: uuid.NewString(),
	}, nil
}

// SessionID identifies this build in audit records and conversation
// journals.
func (b *Builder) SessionID() string { return b.sessionID }

// Run executes the pipeline and returns the saved outcome. The entities
// store carries over from the extraction pass into the enrichment pass, so
// the second pass merges into what the first one built.
func (b *Builder) Run(ctx context.Context) (*BuildOutcome, error) {
	ctx, span := otel.Tracer("ontoforge/session").Start(ctx, "Session.Build")
	defer span.End()
	span.SetAttributes(telemetry.SessionAttributes(b.sessionID, "build", "")...)

	productTree, err := os.ReadFile(b.cfg.Data.ProductTree)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "read product tree data", err)
	}
	guidelines, err := os.ReadFile(b.cfg.Data.Guidelines)
	if err != nil {
		return nil, errors.New(errors.CodeConfig, "read guidelines data", err)
	}

	registry := b.newRegistry()
	if len(b.mcpServers) > 0 {
		servers, err := mcp.MountServers(ctx, registry, b.mcpServers, b.logger)
		if err != nil {
			return nil, err
		}
		defer servers.Close()
	}
	phases := []struct {
		name   string
		system string
		user   string
	}{
		{"extract", prompt.BuildFromProductTree(string(productTree)), prompt.ExtractTurn},
		{"enrich", prompt.EnrichFromText(string(guidelines)), prompt.EnrichTurn},
	}

	outcome := &BuildOutcome{}
	for _, ph := range phases {
		loop, err := agent.New(b.provider, registry, b.loopOptions()...)
		if err != nil {
			return nil, err
		}
		b.logger.Info("build phase starting",
			slog.String("session_id", b.sessionID),
			slog.String("phase", ph.name),
		)
		res, err := loop.Run(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: ph.system},
			{Role: llm.RoleUser, Content: ph.user},
		})
		if err != nil {
			return nil, err
		}
		outcome.Phases = append(outcome.Phases, PhaseReport{
			Name:       ph.name,
			Iterations: res.Iterations,
			Exhausted:  res.Exhausted,
			Usage:      res.Usage,
		})
		b.logger.Info("build phase finished",
			slog.String("session_id", b.sessionID),
			slog.String("phase", ph.name),
			slog.Int("iterations", res.Iterations),
			slog.Bool("exhausted", res.Exhausted),
			slog.Int("total_tokens", res.Usage.TotalTokens),
		)
	}

	doc, err := owl.Transcribe(ctx, b.provider, b.cfg.LLM.Model, b.store)
	if err != nil {
		return nil, err
	}
	if wfErr := owl.CheckWellFormed(doc); wfErr != nil {
		outcome.MalformedOWL = wfErr
		b.logger.Warn("transcribed OWL is not well-formed XML",
			slog.String("session_id", b.sessionID),
			slog.String("error", wfErr.Error()),
		)
	}

	dir, err := NewOutcomeDir(b.cfg.Data.Dir, b.now())
	if err != nil {
		return nil, err
	}
	outcome.Dir = dir
	outcome.SnapshotPath = filepath.Join(dir, SnapshotFileName)
	outcome.OntologyPath = filepath.Join(dir, OntologyFileName)
	if err := b.store.Save(outcome.SnapshotPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outcome.OntologyPath, []byte(doc), 0o644); err != nil {
		return nil, errors.New(errors.CodeSnapshot, "write ontology document", err)
	}
	outcome.Stats = b.store.Stats()
	span.SetAttributes(attribute.String(telemetry.AttrSessionOutcomeDir, dir))
	span.SetAttributes(telemetry.EntityAttributes(
		outcome.Stats.Classes, outcome.Stats.Properties, outcome.Stats.Individuals)...)

	b.logger.Info("build outcome saved",
		slog.String("session_id", b.sessionID),
		slog.String("dir", dir),
		slog.Int("classes", outcome.Stats.Classes),
		slog.Int("properties", outcome.Stats.Properties),
		slog.Int("individuals", outcome.Stats.Individuals),
	)
	return outcome, nil
}

func (b *Builder) newRegistry() *capability.Registry {
	if b.recall != nil {
		return capability.NewIndexedBuilderRegistry(b.store, b.recall, capability.WithLogger(b.logger))
	}
	return capability.NewBuilderRegistry(b.store, capability.WithLogger(b.logger))
}

func (b *Builder) loopOptions() []agent.Option {
	opts := []agent.Option{
		agent.WithModel(b.cfg.LLM.Model),
		agent.WithMaxIterations(b.cfg.Loop.MaxIterations),
		agent.WithBackoff(agent.Backoff{
			Delay:      time.Duration(b.cfg.Loop.RetryDelaySeconds) * time.Second,
			MaxRetries: b.cfg.Loop.MaxRetries,
		}),
		agent.WithVerbose(b.cfg.Loop.Verbose),
		agent.WithSessionID(b.sessionID),
		agent.WithLogger(b.logger),
	}
	if b.recorder != nil {
		opts = append(opts, agent.WithAudit(b.recorder))
	}
	if b.conv != nil {
		opts = append(opts, agent.WithConversation(b.conv))
	}
	if b.metrics != nil {
		opts = append(opts, agent.WithMetrics(b.metrics))
	}
	return opts
}
